package tracefile

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/etwtap/pkg/domain"
)

func testSession(t *testing.T) *domain.SessionContext {
	t.Helper()
	sc, err := domain.NewSessionContext(true, domain.ClockCalibration{
		Frequency: 10_000_000,
		Origin:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return sc
}

func TestRoundTrip(t *testing.T) {
	sc := testSession(t)
	records := []*domain.RawRecord{
		{
			Provider:  uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"),
			Version:   1,
			EventType: 5,
			Timestamp: 1000,
			ThreadID:  10,
			ProcessID: 20,
			CPU:       2,
			Payload:   []byte{7, 0, 0, 0, 'o', 'k', 0},
		},
		{
			Provider:  uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002"),
			Version:   2,
			EventType: 10,
			Timestamp: 2000,
			ThreadID:  11,
			ProcessID: 21,
			CPU:       0,
			Payload:   nil,
		},
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, sc)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.WriteRecord(rec))
	}

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, sc.PointerSize(), r.Session().PointerSize())
	assert.Equal(t, sc.Clock().Frequency, r.Session().Clock().Frequency)
	assert.True(t, sc.Clock().Origin.Equal(r.Session().Clock().Origin))

	for i, want := range records {
		got, err := r.Next()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want.Provider, got.Provider)
		assert.Equal(t, want.Version, got.Version)
		assert.Equal(t, want.EventType, got.EventType)
		assert.Equal(t, want.Timestamp, got.Timestamp)
		assert.Equal(t, want.ThreadID, got.ThreadID)
		assert.Equal(t, want.ProcessID, got.ProcessID)
		assert.Equal(t, want.CPU, got.CPU)
		assert.Equal(t, want.Payload, append([]byte{}, got.Payload...))
	}

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenFile(t *testing.T) {
	sc := testSession(t)
	path := filepath.Join(t.TempDir(), "capture.etb")

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := NewWriter(f, sc)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(&domain.RawRecord{
		Provider:  uuid.New(),
		Version:   1,
		EventType: 1,
		Payload:   []byte{1, 2, 3},
	}))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rec.Payload)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewReader_RejectsBadInput(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(bytes.Repeat([]byte{'x'}, headerLen)))
		assert.Error(t, err)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader([]byte{'E', 'T'}))
		assert.Error(t, err)
	})

	t.Run("unsupported version", func(t *testing.T) {
		var header [headerLen]byte
		copy(header[0:4], magic[:])
		binary.LittleEndian.PutUint16(header[4:], 99)
		_, err := NewReader(bytes.NewReader(header[:]))
		assert.Error(t, err)
	})

	t.Run("zero clock frequency", func(t *testing.T) {
		var header [headerLen]byte
		copy(header[0:4], magic[:])
		binary.LittleEndian.PutUint16(header[4:], FormatVersion)
		_, err := NewReader(bytes.NewReader(header[:]))
		assert.Error(t, err)
	})
}

func TestNext_RejectsOversizedPayload(t *testing.T) {
	sc := testSession(t)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, sc)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(&domain.RawRecord{
		Provider: uuid.New(), Version: 1, EventType: 1, Payload: []byte{1},
	}))

	// Corrupt the frame's payload length in place
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[headerLen+37:], MaxPayloadLen+1)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestWriteRecord_RejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testSession(t))
	require.NoError(t, err)
	err = w.WriteRecord(&domain.RawRecord{Payload: make([]byte, MaxPayloadLen+1)})
	assert.Error(t, err)
}

func TestNext_TruncatedPayload(t *testing.T) {
	sc := testSession(t)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, sc)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(&domain.RawRecord{
		Provider: uuid.New(), Version: 1, EventType: 1, Payload: []byte{1, 2, 3, 4},
	}))

	// Drop the last payload bytes
	data := buf.Bytes()[:buf.Len()-2]
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
