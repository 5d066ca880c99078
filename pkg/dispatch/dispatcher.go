// Package dispatch fans decoded trace events out to registered
// observers. A dispatcher has two phases: registration, during which
// observers subscribe their (provider, event type) interests, and
// running, during which records are resolved, decoded once, and
// delivered to every matching observer in registration order.
package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/yairfalse/etwtap/pkg/domain"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// Observer is a caller-owned consumer of decoded events. The
// dispatcher holds only a non-owning reference and uses the name for
// logs and errors.
type Observer interface {
	Name() string
}

// Handler is one observer entry point. Handlers receive the single
// decoded event shared by every matching observer for that record and
// must not mutate it.
type Handler func(*domain.Event)

type interest struct {
	provider  uuid.UUID
	eventType uint16
}

type subscription struct {
	observer Observer
	handler  Handler
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	RecordsDispatched int64
	RecordsSkipped    int64
	RecordsMalformed  int64
	HandlerCalls      int64
}

// Dispatcher resolves raw records against a frozen schema registry,
// decodes each matching record exactly once, and invokes subscribed
// handlers synchronously. It performs no I/O and holds no locks on the
// dispatch path; callers running concurrent Dispatch loops against one
// instance must synchronize any state their observers share.
type Dispatcher struct {
	registry *schema.Registry
	session  *domain.SessionContext
	logger   *zap.Logger

	subs   map[interest][]subscription
	frozen atomic.Bool

	recordsDispatched atomic.Int64
	recordsSkipped    atomic.Int64
	recordsMalformed  atomic.Int64
	handlerCalls      atomic.Int64

	dispatchedCounter metric.Int64Counter
	skippedCounter    metric.Int64Counter
	malformedCounter  metric.Int64Counter
	handlerCounter    metric.Int64Counter
}

// NewDispatcher creates a dispatcher in the registration phase. Metric
// instrument creation failures are logged and the counters disabled;
// they never block dispatching.
func NewDispatcher(registry *schema.Registry, session *domain.SessionContext, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		session:  session,
		logger:   logger,
		subs:     make(map[interest][]subscription),
	}

	meter := otel.Meter("etwtap.dispatch")
	var err error
	d.dispatchedCounter, err = meter.Int64Counter("etwtap_records_dispatched_total",
		metric.WithDescription("Records decoded and delivered to at least zero handlers"))
	if err != nil {
		logger.Warn("Failed to create dispatched counter", zap.Error(err))
	}
	d.skippedCounter, err = meter.Int64Counter("etwtap_records_skipped_total",
		metric.WithDescription("Records with no registered schema"))
	if err != nil {
		logger.Warn("Failed to create skipped counter", zap.Error(err))
	}
	d.malformedCounter, err = meter.Int64Counter("etwtap_records_malformed_total",
		metric.WithDescription("Records rejected during decoding"))
	if err != nil {
		logger.Warn("Failed to create malformed counter", zap.Error(err))
	}
	d.handlerCounter, err = meter.Int64Counter("etwtap_handler_invocations_total",
		metric.WithDescription("Observer handler invocations"))
	if err != nil {
		logger.Warn("Failed to create handler counter", zap.Error(err))
	}

	return d
}

// Subscribe registers an interest during the registration phase. One
// observer may subscribe any number of (provider, event type) pairs,
// including several codes routed to the same handler. After the
// dispatcher freezes, Subscribe fails with *FrozenError.
func (d *Dispatcher) Subscribe(obs Observer, provider uuid.UUID, eventType uint16, h Handler) error {
	if d.frozen.Load() {
		return &FrozenError{Observer: obs.Name(), Provider: provider, EventType: eventType}
	}
	k := interest{provider: provider, eventType: eventType}
	d.subs[k] = append(d.subs[k], subscription{observer: obs, handler: h})
	d.logger.Debug("Observer subscribed",
		zap.String("observer", obs.Name()),
		zap.String("provider", provider.String()),
		zap.Uint16("event_type", eventType))
	return nil
}

// Freeze explicitly ends the registration phase. The first Dispatch
// call freezes implicitly; calling Freeze up front makes the
// happens-before edge from registration to dispatch explicit in the
// caller's startup sequence.
func (d *Dispatcher) Freeze() {
	if d.frozen.CompareAndSwap(false, true) {
		d.logger.Debug("Dispatcher frozen, entering running phase",
			zap.Int("interests", len(d.subs)))
	}
}

// Dispatch processes exactly one raw record. Records with no
// registered schema are skipped silently. A record that fails to
// decode is reported to the caller and delivered to nobody; the error
// is local to that record and the caller's loop decides whether to
// continue. On success every matching observer is invoked in
// registration order with the one shared decoded event.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *domain.RawRecord) error {
	d.Freeze()

	class, ok := d.registry.Resolve(rec.Provider, rec.Version, rec.EventType)
	if !ok {
		d.recordsSkipped.Add(1)
		if d.skippedCounter != nil {
			d.skippedCounter.Add(ctx, 1)
		}
		return nil
	}

	ev, err := class.Decode(d.session, rec)
	if err != nil {
		d.recordsMalformed.Add(1)
		if d.malformedCounter != nil {
			d.malformedCounter.Add(ctx, 1,
				metric.WithAttributes(attribute.String("class", class.Name)))
		}
		return err
	}

	for _, sub := range d.subs[interest{provider: rec.Provider, eventType: rec.EventType}] {
		sub.handler(ev)
		d.handlerCalls.Add(1)
		if d.handlerCounter != nil {
			d.handlerCounter.Add(ctx, 1,
				metric.WithAttributes(attribute.String("observer", sub.observer.Name())))
		}
	}

	d.recordsDispatched.Add(1)
	if d.dispatchedCounter != nil {
		d.dispatchedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("class", class.Name)))
	}
	return nil
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		RecordsDispatched: d.recordsDispatched.Load(),
		RecordsSkipped:    d.recordsSkipped.Load(),
		RecordsMalformed:  d.recordsMalformed.Load(),
		HandlerCalls:      d.handlerCalls.Load(),
	}
}
