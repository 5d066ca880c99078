package domain

import (
	"github.com/google/uuid"
)

// Field is one decoded (name, value) pair.
type Field struct {
	Name  string
	Value Value
}

// Event is the typed result of decoding a raw record: the record's
// metadata plus its fields in schema-declared order. Events are shared
// read-only across every observer a dispatch delivers to, and live only
// for the duration of that dispatch.
type Event struct {
	Provider  uuid.UUID
	Version   uint8
	EventType uint16
	Timestamp uint64
	ThreadID  uint32
	ProcessID uint32
	CPU       uint16

	fields []Field
	index  map[string]int
}

// NewEvent builds an event from a record's metadata and its decoded
// fields. Field order is preserved; the last field wins name lookup if
// a schema declares a duplicate name.
func NewEvent(rec *RawRecord, fields []Field) *Event {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &Event{
		Provider:  rec.Provider,
		Version:   rec.Version,
		EventType: rec.EventType,
		Timestamp: rec.Timestamp,
		ThreadID:  rec.ThreadID,
		ProcessID: rec.ProcessID,
		CPU:       rec.CPU,
		fields:    fields,
		index:     index,
	}
}

// Fields returns the decoded fields in schema-declared order. Callers
// must treat the returned slice as read-only.
func (e *Event) Fields() []Field {
	return e.fields
}

// Len returns the number of decoded fields.
func (e *Event) Len() int {
	return len(e.fields)
}

// Get looks a field up by name.
func (e *Event) Get(name string) (Value, bool) {
	i, ok := e.index[name]
	if !ok {
		return Value{}, false
	}
	return e.fields[i].Value, true
}
