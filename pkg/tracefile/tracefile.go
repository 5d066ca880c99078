// Package tracefile reads and writes recorded trace captures in a
// simple framed container: a fixed header carrying the session
// metadata (producer pointer width, clock calibration) followed by
// length-prefixed raw records. It is the file-backed trace source the
// decoding core consumes records from; the core itself knows nothing
// about this format.
package tracefile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/domain"
)

const (
	// FormatVersion is the container format version this package writes.
	FormatVersion uint16 = 1

	headerLen = 24
	frameLen  = 41

	flagPointer64 uint16 = 1 << 0

	// MaxPayloadLen bounds a single record payload. Frames claiming
	// more are rejected as corrupt rather than allocated.
	MaxPayloadLen = 1 << 20
)

var magic = [4]byte{'E', 'T', 'W', 'T'}

// Reader iterates the records of one capture file. It is not safe for
// concurrent use; run one reader per goroutine.
type Reader struct {
	br      *bufio.Reader
	closer  io.Closer
	session *domain.SessionContext
}

// Open opens a capture file and parses its session header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader parses the session header from an already-open stream.
func NewReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)

	var header [headerLen]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	if [4]byte(header[0:4]) != magic {
		return nil, fmt.Errorf("not a capture file: bad magic %q", header[0:4])
	}
	if v := binary.LittleEndian.Uint16(header[4:]); v != FormatVersion {
		return nil, fmt.Errorf("unsupported capture format version %d", v)
	}
	flags := binary.LittleEndian.Uint16(header[6:])
	freq := binary.LittleEndian.Uint64(header[8:])
	origin := int64(binary.LittleEndian.Uint64(header[16:]))

	session, err := domain.NewSessionContext(flags&flagPointer64 != 0, domain.ClockCalibration{
		Frequency: freq,
		Origin:    time.Unix(0, origin).UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("capture header: %w", err)
	}

	return &Reader{br: br, session: session}, nil
}

// Session returns the session context parsed from the capture header.
func (r *Reader) Session() *domain.SessionContext {
	return r.session
}

// Next returns the next raw record, or io.EOF at the end of the
// capture. A frame claiming an oversized payload is corrupt and ends
// iteration with an error.
func (r *Reader) Next() (*domain.RawRecord, error) {
	var frame [frameLen]byte
	if _, err := io.ReadFull(r.br, frame[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading record frame: %w", err)
	}

	payloadLen := binary.LittleEndian.Uint32(frame[37:])
	if payloadLen > MaxPayloadLen {
		return nil, fmt.Errorf("record payload length %d exceeds limit %d", payloadLen, MaxPayloadLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, fmt.Errorf("reading record payload: %w", err)
	}

	return &domain.RawRecord{
		Provider:  uuid.UUID(frame[0:16]),
		Version:   frame[16],
		EventType: binary.LittleEndian.Uint16(frame[17:]),
		CPU:       binary.LittleEndian.Uint16(frame[19:]),
		ThreadID:  binary.LittleEndian.Uint32(frame[21:]),
		ProcessID: binary.LittleEndian.Uint32(frame[25:]),
		Timestamp: binary.LittleEndian.Uint64(frame[29:]),
		Payload:   payload,
	}, nil
}

// Close closes the underlying file when the reader was created with
// Open; it is a no-op otherwise.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Writer produces capture files in the same format, mainly for tests
// and capture tooling.
type Writer struct {
	w io.Writer
}

// NewWriter writes the session header and returns a record writer.
func NewWriter(dst io.Writer, session *domain.SessionContext) (*Writer, error) {
	var header [headerLen]byte
	copy(header[0:4], magic[:])
	binary.LittleEndian.PutUint16(header[4:], FormatVersion)
	var flags uint16
	if session.Is64Bit() {
		flags |= flagPointer64
	}
	binary.LittleEndian.PutUint16(header[6:], flags)
	clock := session.Clock()
	binary.LittleEndian.PutUint64(header[8:], clock.Frequency)
	binary.LittleEndian.PutUint64(header[16:], uint64(clock.Origin.UnixNano()))

	if _, err := dst.Write(header[:]); err != nil {
		return nil, fmt.Errorf("writing capture header: %w", err)
	}
	return &Writer{w: dst}, nil
}

// WriteRecord appends one raw record frame.
func (w *Writer) WriteRecord(rec *domain.RawRecord) error {
	if len(rec.Payload) > MaxPayloadLen {
		return fmt.Errorf("record payload length %d exceeds limit %d", len(rec.Payload), MaxPayloadLen)
	}
	var frame [frameLen]byte
	copy(frame[0:16], rec.Provider[:])
	frame[16] = rec.Version
	binary.LittleEndian.PutUint16(frame[17:], rec.EventType)
	binary.LittleEndian.PutUint16(frame[19:], rec.CPU)
	binary.LittleEndian.PutUint32(frame[21:], rec.ThreadID)
	binary.LittleEndian.PutUint32(frame[25:], rec.ProcessID)
	binary.LittleEndian.PutUint64(frame[29:], rec.Timestamp)
	binary.LittleEndian.PutUint32(frame[37:], uint32(len(rec.Payload)))

	if _, err := w.w.Write(frame[:]); err != nil {
		return fmt.Errorf("writing record frame: %w", err)
	}
	if _, err := w.w.Write(rec.Payload); err != nil {
		return fmt.Errorf("writing record payload: %w", err)
	}
	return nil
}
