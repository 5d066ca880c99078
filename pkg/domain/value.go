package domain

import (
	"fmt"
	"time"
)

// ValueKind identifies which scalar a Value carries.
type ValueKind uint8

const (
	KindInvalid ValueKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindPointer
	KindTime
	KindString
	KindWideString
	KindSID
)

// String returns the kind name for logs and error messages.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindPointer:
		return "pointer"
	case KindTime:
		return "time"
	case KindString:
		return "string"
	case KindWideString:
		return "wstring"
	case KindSID:
		return "sid"
	default:
		return "invalid"
	}
}

// Value is the tagged scalar a field decodes into. Exactly one of the
// carrier fields is meaningful, selected by Kind: signed integers use
// Int, unsigned integers and pointers use Uint, narrow and wide text
// both use Str.
type Value struct {
	Kind ValueKind

	Bool bool
	Int  int64
	Uint uint64
	Time time.Time
	Str  string
	SID  SID
}

// Any returns the carried scalar as an interface value, with signed
// kinds narrowed back to their declared width. Used for serialization
// and for observers that want dynamic access.
func (v Value) Any() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt8:
		return int8(v.Int)
	case KindInt16:
		return int16(v.Int)
	case KindInt32:
		return int32(v.Int)
	case KindInt64:
		return v.Int
	case KindUint8:
		return uint8(v.Uint)
	case KindUint16:
		return uint16(v.Uint)
	case KindUint32:
		return uint32(v.Uint)
	case KindUint64, KindPointer:
		return v.Uint
	case KindTime:
		return v.Time
	case KindString, KindWideString:
		return v.Str
	case KindSID:
		return v.SID.String()
	default:
		return nil
	}
}

// String renders the value for human-readable output.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.Int)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return fmt.Sprintf("%d", v.Uint)
	case KindPointer:
		return fmt.Sprintf("0x%x", v.Uint)
	case KindTime:
		return v.Time.Format(time.RFC3339Nano)
	case KindString, KindWideString:
		return v.Str
	case KindSID:
		return v.SID.String()
	default:
		return "<invalid>"
	}
}
