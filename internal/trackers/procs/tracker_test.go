package procs

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/etwtap/pkg/dispatch"
	"github.com/yairfalse/etwtap/pkg/domain"
	"github.com/yairfalse/etwtap/pkg/providers"
	"github.com/yairfalse/etwtap/pkg/providers/process"
	"github.com/yairfalse/etwtap/pkg/schema"
)

func newHarness(t *testing.T) (*Tracker, *dispatch.Dispatcher) {
	t.Helper()

	reg := schema.NewRegistry()
	require.NoError(t, providers.RegisterAll(reg))
	reg.Freeze()

	sc, err := domain.NewSessionContext(true, domain.ClockCalibration{
		Frequency: 10_000_000,
		Origin:    time.Unix(0, 0).UTC(),
	})
	require.NoError(t, err)

	d := dispatch.NewDispatcher(reg, sc, zaptest.NewLogger(t))
	tracker := NewTracker(zaptest.NewLogger(t))
	require.NoError(t, tracker.Attach(d))
	return tracker, d
}

func processRecord(eventType uint16, pid, ppid uint32, image string, cmdline string) *domain.RawRecord {
	var payload []byte
	payload = binary.LittleEndian.AppendUint64(payload, uint64(pid)) // UniqueProcessKey
	payload = binary.LittleEndian.AppendUint32(payload, pid)
	payload = binary.LittleEndian.AppendUint32(payload, ppid)
	payload = binary.LittleEndian.AppendUint32(payload, 1)         // SessionId
	payload = binary.LittleEndian.AppendUint32(payload, 0)         // ExitStatus
	payload = append(payload, 1, 1, 0, 0, 0, 0, 0, 5, 18, 0, 0, 0) // UserSID
	payload = append(payload, []byte(image)...)
	payload = append(payload, 0)
	for _, r := range cmdline {
		payload = binary.LittleEndian.AppendUint16(payload, uint16(r))
	}
	payload = append(payload, 0, 0)

	return &domain.RawRecord{
		Provider:  process.ProviderGUID,
		Version:   process.Version3,
		EventType: eventType,
		Timestamp: 700,
		ProcessID: pid,
		Payload:   payload,
	}
}

func TestTracker_StartAndEnd(t *testing.T) {
	tracker, d := newHarness(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, processRecord(process.EventTypeStart, 100, 4, "services.exe", `C:\Windows\services.exe`)))
	require.NoError(t, d.Dispatch(ctx, processRecord(process.EventTypeStart, 200, 100, "svchost.exe", `svchost -k netsvcs`)))

	p, ok := tracker.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, uint32(4), p.ParentPID)
	assert.Equal(t, "services.exe", p.ImageName)
	assert.Equal(t, `C:\Windows\services.exe`, p.CommandLine)
	assert.Equal(t, "S-1-5-18", p.UserSID)
	assert.Equal(t, uint64(700), p.StartedAt)
	assert.Equal(t, 2, tracker.Len())

	assert.Equal(t, []uint32{200}, tracker.Children(100))

	require.NoError(t, d.Dispatch(ctx, processRecord(process.EventTypeEnd, 200, 100, "svchost.exe", "")))
	_, ok = tracker.Lookup(200)
	assert.False(t, ok)
	assert.Empty(t, tracker.Children(100))
	assert.Equal(t, 1, tracker.Len())
}

func TestTracker_RundownHasNoStartTime(t *testing.T) {
	tracker, d := newHarness(t)

	require.NoError(t, d.Dispatch(context.Background(),
		processRecord(process.EventTypeDCStart, 300, 4, "winlogon.exe", "winlogon")))

	p, ok := tracker.Lookup(300)
	require.True(t, ok)
	assert.Zero(t, p.StartedAt)
}

func TestTracker_LookupReturnsCopy(t *testing.T) {
	tracker, d := newHarness(t)

	require.NoError(t, d.Dispatch(context.Background(),
		processRecord(process.EventTypeStart, 100, 4, "services.exe", "services")))

	p, ok := tracker.Lookup(100)
	require.True(t, ok)
	p.ImageName = "tampered"

	p2, _ := tracker.Lookup(100)
	assert.Equal(t, "services.exe", p2.ImageName)
}
