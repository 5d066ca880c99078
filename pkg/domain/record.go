// Package domain holds the core data model for trace record decoding:
// raw records as emitted by an ETW session, decoded events, session
// context, and the scalar value types fields decode into.
package domain

import (
	"github.com/google/uuid"
)

// RawRecord is one undecoded trace entry plus its metadata. The payload
// layout depends on the (Provider, Version, EventType) triple and is
// interpreted by the schema registered for it. The record is owned by
// the caller for the duration of one decode call; nothing in this
// module retains it afterwards.
type RawRecord struct {
	// Provider is the 128-bit GUID naming the event family.
	Provider uuid.UUID

	// Version distinguishes incompatible payload layouts within one provider.
	Version uint8

	// EventType selects which schema within a (provider, version) pair applies.
	EventType uint16

	// Timestamp is in producer clock ticks; convert with SessionContext.WallClock.
	Timestamp uint64

	ThreadID  uint32
	ProcessID uint32
	CPU       uint16

	// Payload is the opaque event body. May be truncated or corrupt;
	// decoding never reads past its end.
	Payload []byte
}
