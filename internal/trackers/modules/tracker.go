// Package modules tracks which images each process currently has
// loaded, fed by kernel image load/unload events.
package modules

import (
	"sync"

	"go.uber.org/zap"

	"github.com/yairfalse/etwtap/pkg/dispatch"
	"github.com/yairfalse/etwtap/pkg/domain"
	"github.com/yairfalse/etwtap/pkg/providers/image"
)

// Module is one loaded image in a process.
type Module struct {
	FileName string
	Base     uint64
	Size     uint64
	LoadedAt uint64 // producer ticks
}

// Tracker keeps per-process loaded-module bookkeeping. Handlers run on
// whatever goroutine calls Dispatch; the tracker owns its own locking
// since the dispatcher enforces none.
type Tracker struct {
	logger *zap.Logger

	mu        sync.Mutex
	byProcess map[uint32][]Module
}

// NewTracker creates an empty module tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		logger:    logger.Named("modules"),
		byProcess: make(map[uint32][]Module),
	}
}

// Name implements dispatch.Observer.
func (t *Tracker) Name() string {
	return "module-tracker"
}

// Attach subscribes the tracker's interests. Rundown events use the
// same layout as live loads, so they share the handler.
func (t *Tracker) Attach(d *dispatch.Dispatcher) error {
	for _, et := range []uint16{image.EventTypeLoad, image.EventTypeDCStart} {
		if err := d.Subscribe(t, image.ProviderGUID, et, t.onLoad); err != nil {
			return err
		}
	}
	for _, et := range []uint16{image.EventTypeUnload, image.EventTypeDCEnd} {
		if err := d.Subscribe(t, image.ProviderGUID, et, t.onUnload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) onLoad(ev *domain.Event) {
	pid, name, base := imageKey(ev)
	size, _ := ev.Get("ImageSize")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byProcess[pid] = append(t.byProcess[pid], Module{
		FileName: name,
		Base:     base,
		Size:     size.Uint,
		LoadedAt: ev.Timestamp,
	})
	t.logger.Debug("Image loaded",
		zap.Uint32("pid", pid),
		zap.String("file", name),
		zap.Uint64("base", base))
}

func (t *Tracker) onUnload(ev *domain.Event) {
	pid, _, base := imageKey(ev)

	t.mu.Lock()
	defer t.mu.Unlock()
	mods := t.byProcess[pid]
	for i, m := range mods {
		if m.Base == base {
			t.byProcess[pid] = append(mods[:i], mods[i+1:]...)
			return
		}
	}
}

func imageKey(ev *domain.Event) (pid uint32, name string, base uint64) {
	if v, ok := ev.Get("ProcessId"); ok {
		pid = uint32(v.Uint)
	}
	if v, ok := ev.Get("FileName"); ok {
		name = v.Str
	}
	if v, ok := ev.Get("ImageBase"); ok {
		base = v.Uint
	}
	return pid, name, base
}

// Modules returns a snapshot of the images currently loaded in a
// process, in load order.
func (t *Tracker) Modules(pid uint32) []Module {
	t.mu.Lock()
	defer t.mu.Unlock()
	mods := t.byProcess[pid]
	out := make([]Module, len(mods))
	copy(out, mods)
	return out
}

// ProcessCount returns how many processes have at least one tracked
// module.
func (t *Tracker) ProcessCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, mods := range t.byProcess {
		if len(mods) > 0 {
			n++
		}
	}
	return n
}
