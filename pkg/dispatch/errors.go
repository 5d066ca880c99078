package dispatch

import (
	"fmt"

	"github.com/google/uuid"
)

// FrozenError reports a Subscribe call after the dispatcher entered
// the running phase. Interests are fixed once dispatching starts, so
// this is a programming error in the caller's startup sequence.
type FrozenError struct {
	Observer  string
	Provider  uuid.UUID
	EventType uint16
}

func (e *FrozenError) Error() string {
	return fmt.Sprintf("subscribe after freeze: observer %q, provider %s, event type %d",
		e.Observer, e.Provider, e.EventType)
}
