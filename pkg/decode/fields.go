package decode

import (
	"github.com/yairfalse/etwtap/pkg/domain"
)

// FieldDecoder consumes one field's bytes from the reader and returns
// its typed value. Decoders are pure: all ambient state they need
// (pointer width, clock calibration) comes in through the session
// context.
type FieldDecoder func(*domain.SessionContext, *Reader) (domain.Value, error)

// Bool decodes a one-byte boolean.
func Bool(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadBool()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindBool, Bool: v}, nil
}

// Int8 decodes a signed byte.
func Int8(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadInt8()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindInt8, Int: int64(v)}, nil
}

// Int16 decodes a little-endian int16.
func Int16(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadInt16()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindInt16, Int: int64(v)}, nil
}

// Int32 decodes a little-endian int32.
func Int32(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindInt32, Int: int64(v)}, nil
}

// Int64 decodes a little-endian int64.
func Int64(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadInt64()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindInt64, Int: v}, nil
}

// UInt8 decodes an unsigned byte.
func UInt8(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindUint8, Uint: uint64(v)}, nil
}

// UInt16 decodes a little-endian uint16.
func UInt16(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadUint16()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindUint16, Uint: uint64(v)}, nil
}

// UInt32 decodes a little-endian uint32.
func UInt32(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindUint32, Uint: uint64(v)}, nil
}

// UInt64 decodes a little-endian uint64.
func UInt64(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindUint64, Uint: v}, nil
}

// Pointer decodes a producer-pointer-sized value, 4 or 8 bytes per the
// session context.
func Pointer(sc *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadPointer(sc)
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindPointer, Uint: v}, nil
}

// String decodes a NUL-terminated narrow string.
func String(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadString()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindString, Str: v}, nil
}

// WideString decodes a NUL-terminated UTF-16LE string.
func WideString(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadWideString()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindWideString, Str: v}, nil
}

// SID decodes a binary security identifier.
func SID(_ *domain.SessionContext, r *Reader) (domain.Value, error) {
	v, err := r.ReadSID()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindSID, SID: v}, nil
}

// TimeStamp decodes an 8-byte producer tick count and converts it to
// wall-clock time through the session calibration.
func TimeStamp(sc *domain.SessionContext, r *Reader) (domain.Value, error) {
	ticks, err := r.ReadUint64()
	if err != nil {
		return domain.Value{}, err
	}
	return domain.Value{Kind: domain.KindTime, Time: sc.WallClock(ticks)}, nil
}
