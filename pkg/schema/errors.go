package schema

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrFrozen is returned by Register once the registry has been frozen.
var ErrFrozen = errors.New("schema registry is frozen")

// DuplicateEventTypeError reports two classes claiming the same
// event-type code under one (provider, version) key. This is a
// configuration error in the descriptor set and is fatal at
// registration time.
type DuplicateEventTypeError struct {
	Provider  uuid.UUID
	Version   uint8
	EventType uint16
	Existing  string
	New       string
}

func (e *DuplicateEventTypeError) Error() string {
	return fmt.Sprintf("event type %d under provider %s v%d already claimed by class %q, rejected class %q",
		e.EventType, e.Provider, e.Version, e.Existing, e.New)
}
