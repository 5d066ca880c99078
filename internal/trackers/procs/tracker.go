// Package procs maintains a live process table from kernel process
// start/stop events.
package procs

import (
	"sync"

	"go.uber.org/zap"

	"github.com/yairfalse/etwtap/pkg/dispatch"
	"github.com/yairfalse/etwtap/pkg/domain"
	"github.com/yairfalse/etwtap/pkg/providers/process"
)

// Process is one tracked process.
type Process struct {
	PID         uint32
	ParentPID   uint32
	SessionID   uint32
	ImageName   string
	CommandLine string
	UserSID     string
	StartedAt   uint64 // producer ticks; zero for rundown entries
}

// Tracker keeps the process table. Like every observer it owns its own
// synchronization.
type Tracker struct {
	logger *zap.Logger

	mu    sync.Mutex
	table map[uint32]*Process
}

// NewTracker creates an empty process tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		logger: logger.Named("procs"),
		table:  make(map[uint32]*Process),
	}
}

// Name implements dispatch.Observer.
func (t *Tracker) Name() string {
	return "process-tracker"
}

// Attach subscribes the tracker's interests.
func (t *Tracker) Attach(d *dispatch.Dispatcher) error {
	for _, et := range []uint16{process.EventTypeStart, process.EventTypeDCStart} {
		if err := d.Subscribe(t, process.ProviderGUID, et, t.onStart); err != nil {
			return err
		}
	}
	for _, et := range []uint16{process.EventTypeEnd, process.EventTypeDCEnd} {
		if err := d.Subscribe(t, process.ProviderGUID, et, t.onEnd); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) onStart(ev *domain.Event) {
	p := &Process{StartedAt: ev.Timestamp}
	if v, ok := ev.Get("ProcessId"); ok {
		p.PID = uint32(v.Uint)
	}
	if v, ok := ev.Get("ParentId"); ok {
		p.ParentPID = uint32(v.Uint)
	}
	if v, ok := ev.Get("SessionId"); ok {
		p.SessionID = uint32(v.Uint)
	}
	if v, ok := ev.Get("ImageFileName"); ok {
		p.ImageName = v.Str
	}
	if v, ok := ev.Get("CommandLine"); ok {
		p.CommandLine = v.Str
	}
	if v, ok := ev.Get("UserSID"); ok {
		p.UserSID = v.SID.String()
	}
	if ev.EventType == process.EventTypeDCStart {
		p.StartedAt = 0
	}

	t.mu.Lock()
	t.table[p.PID] = p
	t.mu.Unlock()

	t.logger.Debug("Process started",
		zap.Uint32("pid", p.PID),
		zap.Uint32("ppid", p.ParentPID),
		zap.String("image", p.ImageName))
}

func (t *Tracker) onEnd(ev *domain.Event) {
	v, ok := ev.Get("ProcessId")
	if !ok {
		return
	}
	pid := uint32(v.Uint)

	t.mu.Lock()
	delete(t.table, pid)
	t.mu.Unlock()
}

// Lookup returns a copy of the tracked process, if any.
func (t *Tracker) Lookup(pid uint32) (Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.table[pid]
	if !ok {
		return Process{}, false
	}
	return *p, true
}

// Children returns the PIDs whose parent is the given process.
func (t *Tracker) Children(pid uint32) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var kids []uint32
	for _, p := range t.table {
		if p.ParentPID == pid {
			kids = append(kids, p.PID)
		}
	}
	return kids
}

// Len returns the number of live tracked processes.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.table)
}
