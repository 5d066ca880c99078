// Package decode implements the bounded payload reader and the field
// decoder catalog used to turn raw trace record payloads into typed
// values. Payloads come from producers the decoder does not trust:
// every read is bounds-checked and a truncated or corrupt record
// surfaces as an OverflowError, never as a panic or an out-of-bounds
// access.
package decode

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/yairfalse/etwtap/pkg/domain"
)

// Reader is a cursor over one record payload. All multi-byte reads are
// little-endian, matching the trace wire format. A failed read leaves
// the cursor where it was.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps a payload span. The reader aliases data and never
// writes to it.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current cursor offset.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Len returns the total payload length.
func (r *Reader) Len() int {
	return len(r.data)
}

func (r *Reader) ensure(op string, need int) error {
	if remaining := len(r.data) - r.pos; remaining < need {
		return &OverflowError{Op: op, Need: need, Remaining: remaining}
	}
	return nil
}

// ReadBool reads a single byte, treating any non-zero value as true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadUint8 reads one unsigned byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.ensure("uint8", 1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.ensure("uint16", 2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.ensure("uint32", 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.ensure("uint64", 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadInt8 reads one signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadInt16 reads a little-endian int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a little-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a little-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadPointer reads a pointer-sized value: 4 bytes when the session's
// producing process was 32-bit, 8 when it was 64-bit. The width always
// follows the producer, never the decoding host.
func (r *Reader) ReadPointer(sc *domain.SessionContext) (uint64, error) {
	if sc.PointerSize() == 8 {
		return r.ReadUint64()
	}
	v, err := r.ReadUint32()
	return uint64(v), err
}

// ReadString reads a NUL-terminated narrow string and consumes the
// terminator. A string with no terminator before the end of the
// payload is an overflow, not an implicit end: the record claims more
// bytes than it has.
func (r *Reader) ReadString() (string, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", &OverflowError{Op: "string", Need: r.Remaining() + 1, Remaining: r.Remaining()}
}

// ReadWideString reads a NUL-terminated UTF-16LE string and consumes
// the two-byte terminator. Like ReadString, a missing terminator or an
// odd trailing byte is an overflow.
func (r *Reader) ReadWideString() (string, error) {
	for i := r.pos; i+1 < len(r.data); i += 2 {
		if r.data[i] == 0 && r.data[i+1] == 0 {
			units := make([]uint16, 0, (i-r.pos)/2)
			for j := r.pos; j < i; j += 2 {
				units = append(units, binary.LittleEndian.Uint16(r.data[j:]))
			}
			r.pos = i + 2
			return string(utf16.Decode(units)), nil
		}
	}
	return "", &OverflowError{Op: "wstring", Need: r.Remaining() + 2, Remaining: r.Remaining()}
}

const (
	sidHeaderLen         = 8
	sidMaxSubAuthorities = 15
)

// ReadSID reads a binary security identifier. The total length is
// implied by the sub-authority count in the second header byte; a
// count above the format maximum is treated the same as truncation
// since the claimed length cannot be honored.
func (r *Reader) ReadSID() (domain.SID, error) {
	if err := r.ensure("sid", sidHeaderLen); err != nil {
		return nil, err
	}
	count := int(r.data[r.pos+1])
	if count > sidMaxSubAuthorities {
		return nil, &OverflowError{Op: "sid", Need: sidHeaderLen + 4*count, Remaining: r.Remaining()}
	}
	total := sidHeaderLen + 4*count
	if err := r.ensure("sid", total); err != nil {
		return nil, err
	}
	sid := make(domain.SID, total)
	copy(sid, r.data[r.pos:r.pos+total])
	r.pos += total
	return sid, nil
}
