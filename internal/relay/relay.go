// Package relay forwards decoded trace events to NATS as JSON. It sits
// outside the decoding core: the core's only output contract is the
// synchronous observer callback, and the relay is just one more
// observer.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/yairfalse/etwtap/pkg/dispatch"
	"github.com/yairfalse/etwtap/pkg/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultSubjectPrefix is the subject root when none is configured.
	DefaultSubjectPrefix = "etwtap.events"

	defaultReconnectWait = 2 * time.Second
	defaultMaxReconnects = 10
)

// Publisher is the slice of a NATS connection the relay needs;
// *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the JSON shape published per event.
type Envelope struct {
	Provider  string      `json:"provider"`
	Version   uint8       `json:"version"`
	EventType uint16      `json:"event_type"`
	Timestamp uint64      `json:"timestamp"`
	ThreadID  uint32      `json:"thread_id"`
	ProcessID uint32      `json:"process_id"`
	CPU       uint16      `json:"cpu"`
	Fields    []FieldJSON `json:"fields"`
}

// FieldJSON is one decoded field, in schema order.
type FieldJSON struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Relay publishes every event it observes. Publish failures are
// counted and logged, never propagated: losing a relay message must
// not disturb the dispatch loop.
type Relay struct {
	logger        *zap.Logger
	pub           Publisher
	subjectPrefix string

	publishedCounter metric.Int64Counter
	failedCounter    metric.Int64Counter
}

// New creates a relay publishing under the given subject prefix.
func New(logger *zap.Logger, pub Publisher, subjectPrefix string) *Relay {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	r := &Relay{
		logger:        logger.Named("relay"),
		pub:           pub,
		subjectPrefix: subjectPrefix,
	}

	meter := otel.Meter("etwtap.relay")
	var err error
	r.publishedCounter, err = meter.Int64Counter("etwtap_relay_published_total",
		metric.WithDescription("Events published to NATS"))
	if err != nil {
		logger.Warn("Failed to create published counter", zap.Error(err))
	}
	r.failedCounter, err = meter.Int64Counter("etwtap_relay_failed_total",
		metric.WithDescription("Events that failed to publish"))
	if err != nil {
		logger.Warn("Failed to create failed counter", zap.Error(err))
	}

	return r
}

// Name implements dispatch.Observer.
func (r *Relay) Name() string {
	return "nats-relay"
}

// Attach subscribes the relay for the given event types of one
// provider, all routed to the publishing handler.
func (r *Relay) Attach(d *dispatch.Dispatcher, provider uuid.UUID, eventTypes ...uint16) error {
	for _, et := range eventTypes {
		if err := d.Subscribe(r, provider, et, r.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle serializes and publishes one event. It is the handler entry
// for every interest the relay subscribes.
func (r *Relay) Handle(ev *domain.Event) {
	ctx := context.Background()

	env := Envelope{
		Provider:  ev.Provider.String(),
		Version:   ev.Version,
		EventType: ev.EventType,
		Timestamp: ev.Timestamp,
		ThreadID:  ev.ThreadID,
		ProcessID: ev.ProcessID,
		CPU:       ev.CPU,
		Fields:    make([]FieldJSON, 0, ev.Len()),
	}
	for _, f := range ev.Fields() {
		env.Fields = append(env.Fields, FieldJSON{Name: f.Name, Value: f.Value.Any()})
	}

	data, err := json.Marshal(env)
	if err != nil {
		r.logger.Error("Failed to encode event", zap.Error(err))
		if r.failedCounter != nil {
			r.failedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "encode")))
		}
		return
	}

	subject := fmt.Sprintf("%s.%s.%d", r.subjectPrefix, env.Provider, env.EventType)
	if err := r.pub.Publish(subject, data); err != nil {
		r.logger.Warn("Failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
		if r.failedCounter != nil {
			r.failedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "publish")))
		}
		return
	}
	if r.publishedCounter != nil {
		r.publishedCounter.Add(ctx, 1)
	}
}

// Dial connects to a NATS server with the relay's reconnect defaults.
func Dial(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.ReconnectWait(defaultReconnectWait),
		nats.MaxReconnects(defaultMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return conn, nil
}
