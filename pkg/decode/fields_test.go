package decode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/etwtap/pkg/domain"
)

func TestFieldDecoders_Scalars(t *testing.T) {
	sc := session(t, true)

	tests := []struct {
		name    string
		decoder FieldDecoder
		data    []byte
		want    domain.Value
		wantPos int
	}{
		{
			name:    "bool",
			decoder: Bool,
			data:    []byte{1},
			want:    domain.Value{Kind: domain.KindBool, Bool: true},
			wantPos: 1,
		},
		{
			name:    "int8",
			decoder: Int8,
			data:    []byte{0xff},
			want:    domain.Value{Kind: domain.KindInt8, Int: -1},
			wantPos: 1,
		},
		{
			name:    "int16",
			decoder: Int16,
			data:    []byte{0xfe, 0xff},
			want:    domain.Value{Kind: domain.KindInt16, Int: -2},
			wantPos: 2,
		},
		{
			name:    "int32",
			decoder: Int32,
			data:    []byte{0xfd, 0xff, 0xff, 0xff},
			want:    domain.Value{Kind: domain.KindInt32, Int: -3},
			wantPos: 4,
		},
		{
			name:    "int64",
			decoder: Int64,
			data:    []byte{0xfc, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			want:    domain.Value{Kind: domain.KindInt64, Int: -4},
			wantPos: 8,
		},
		{
			name:    "uint8",
			decoder: UInt8,
			data:    []byte{0x80},
			want:    domain.Value{Kind: domain.KindUint8, Uint: 128},
			wantPos: 1,
		},
		{
			name:    "uint16",
			decoder: UInt16,
			data:    []byte{0x34, 0x12},
			want:    domain.Value{Kind: domain.KindUint16, Uint: 0x1234},
			wantPos: 2,
		},
		{
			name:    "uint32",
			decoder: UInt32,
			data:    []byte{0x78, 0x56, 0x34, 0x12},
			want:    domain.Value{Kind: domain.KindUint32, Uint: 0x12345678},
			wantPos: 4,
		},
		{
			name:    "uint64",
			decoder: UInt64,
			data:    []byte{1, 0, 0, 0, 0, 0, 0, 0},
			want:    domain.Value{Kind: domain.KindUint64, Uint: 1},
			wantPos: 8,
		},
		{
			name:    "string",
			decoder: String,
			data:    []byte{'h', 'i', 0},
			want:    domain.Value{Kind: domain.KindString, Str: "hi"},
			wantPos: 3,
		},
		{
			name:    "wide string",
			decoder: WideString,
			data:    []byte{'h', 0, 'i', 0, 0, 0},
			want:    domain.Value{Kind: domain.KindWideString, Str: "hi"},
			wantPos: 6,
		},
		{
			name:    "sid",
			decoder: SID,
			data:    []byte{1, 1, 0, 0, 0, 0, 0, 5, 18, 0, 0, 0},
			want:    domain.Value{Kind: domain.KindSID, SID: domain.SID{1, 1, 0, 0, 0, 0, 0, 5, 18, 0, 0, 0}},
			wantPos: 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			v, err := tt.decoder(sc, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.wantPos, r.Position())
		})
	}
}

func TestPointer_WidthFollowsSession(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	r := NewReader(data)
	v, err := Pointer(session(t, false), r)
	require.NoError(t, err)
	assert.Equal(t, domain.Value{Kind: domain.KindPointer, Uint: 0x04030201}, v)
	assert.Equal(t, 4, r.Position())

	r = NewReader(data)
	v, err = Pointer(session(t, true), r)
	require.NoError(t, err)
	assert.Equal(t, domain.Value{Kind: domain.KindPointer, Uint: 0x0807060504030201}, v)
	assert.Equal(t, 8, r.Position())
}

func TestTimeStamp_UsesSessionCalibration(t *testing.T) {
	sc := session(t, true)

	// 15_000_000 ticks at 10 MHz is 1.5s past the origin
	r := NewReader([]byte{0xc0, 0xe1, 0xe4, 0x00, 0, 0, 0, 0})
	v, err := TimeStamp(sc, r)
	require.NoError(t, err)
	assert.Equal(t, domain.KindTime, v.Kind)
	assert.Equal(t, sc.Clock().Origin.Add(1500*time.Millisecond), v.Time)
	assert.Equal(t, 8, r.Position())
}

func TestFieldDecoders_Underflow(t *testing.T) {
	sc := session(t, true)

	decoders := map[string]FieldDecoder{
		"bool":        Bool,
		"int8":        Int8,
		"int16":       Int16,
		"int32":       Int32,
		"int64":       Int64,
		"uint8":       UInt8,
		"uint16":      UInt16,
		"uint32":      UInt32,
		"uint64":      UInt64,
		"pointer":     Pointer,
		"string":      String,
		"wide string": WideString,
		"sid":         SID,
		"timestamp":   TimeStamp,
	}

	for name, decoder := range decoders {
		t.Run(name, func(t *testing.T) {
			r := NewReader(nil)
			_, err := decoder(sc, r)
			var overflow *OverflowError
			require.ErrorAs(t, err, &overflow)
			assert.Equal(t, 0, r.Position())
		})
	}
}
