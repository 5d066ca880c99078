// Package schema maps a record's (provider, version, event type) key
// to the event class that knows how to decode its payload. Classes are
// registered by descriptor packages at startup; the registry is frozen
// before dispatch begins and is lock-free to read afterwards.
package schema

import (
	"fmt"

	"github.com/yairfalse/etwtap/pkg/decode"
	"github.com/yairfalse/etwtap/pkg/domain"
)

// Field pairs a field name with the decoder that consumes its bytes.
type Field struct {
	Name   string
	Decode decode.FieldDecoder
}

// Class is one event schema: the event-type codes it claims under its
// (provider, version) key and the ordered field list that fully
// determines its payload layout. Classes are immutable once registered.
type Class struct {
	Name       string
	EventTypes []uint16
	Fields     []Field
}

// NewClass builds an event class.
func NewClass(name string, eventTypes []uint16, fields ...Field) *Class {
	return &Class{
		Name:       name,
		EventTypes: eventTypes,
		Fields:     fields,
	}
}

// Decode interprets a raw record's payload against this class. Fields
// are decoded in declared order; the first failure aborts the whole
// record with no partial event. On success the returned event carries
// every field plus the record's metadata unchanged.
func (c *Class) Decode(sc *domain.SessionContext, rec *domain.RawRecord) (*domain.Event, error) {
	r := decode.NewReader(rec.Payload)
	fields := make([]domain.Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		v, err := f.Decode(sc, r)
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", c.Name, f.Name, err)
		}
		fields = append(fields, domain.Field{Name: f.Name, Value: v})
	}
	return domain.NewEvent(rec, fields), nil
}
