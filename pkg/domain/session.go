package domain

import (
	"fmt"
	"time"
)

// ClockCalibration converts producer clock ticks into wall-clock time.
// Frequency is ticks per second; Origin is the wall-clock instant of
// tick zero. Both come from session metadata supplied when the trace
// source is opened.
type ClockCalibration struct {
	Frequency uint64
	Origin    time.Time
}

// SessionContext carries the immutable per-session facts needed during
// decoding: the producing process pointer width and the timestamp
// calibration. It is created once per trace source and shared read-only
// for the source's lifetime.
type SessionContext struct {
	pointerSize int
	clock       ClockCalibration
}

// NewSessionContext builds a session context for a producing process of
// the given pointer width. pointer64 refers to the producer, never to
// the process doing the decoding.
func NewSessionContext(pointer64 bool, clock ClockCalibration) (*SessionContext, error) {
	if clock.Frequency == 0 {
		return nil, fmt.Errorf("clock calibration frequency must be non-zero")
	}
	size := 4
	if pointer64 {
		size = 8
	}
	return &SessionContext{
		pointerSize: size,
		clock:       clock,
	}, nil
}

// PointerSize returns the producer pointer width in bytes (4 or 8).
func (s *SessionContext) PointerSize() int {
	return s.pointerSize
}

// Is64Bit reports whether the producing process was 64-bit.
func (s *SessionContext) Is64Bit() bool {
	return s.pointerSize == 8
}

// Clock returns the session's timestamp calibration.
func (s *SessionContext) Clock() ClockCalibration {
	return s.clock
}

// WallClock converts a producer tick count into wall-clock time using
// the session calibration. Sub-second remainders are converted with
// integer math so the result is deterministic.
func (s *SessionContext) WallClock(ticks uint64) time.Time {
	freq := s.clock.Frequency
	sec := ticks / freq
	frac := ticks % freq
	nanos := frac * uint64(time.Second) / freq
	return s.clock.Origin.Add(time.Duration(sec)*time.Second + time.Duration(nanos))
}
