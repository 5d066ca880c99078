package schema

import (
	"fmt"

	"github.com/google/uuid"
)

type key struct {
	provider uuid.UUID
	version  uint8
}

// Registry resolves a record's (provider, version, event type) triple
// to the one class that decodes it. All registration happens at
// startup; Freeze makes the registry immutable, after which Resolve is
// safe from any number of goroutines without locking.
type Registry struct {
	classes map[key]map[uint16]*Class
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[key]map[uint16]*Class),
	}
}

// Register installs a class under a (provider, version) key, claiming
// every event-type code the class declares. A code already claimed by
// another class under the same key is rejected with
// *DuplicateEventTypeError and nothing is installed.
func (reg *Registry) Register(provider uuid.UUID, version uint8, class *Class) error {
	if reg.frozen {
		return ErrFrozen
	}
	if class == nil {
		return fmt.Errorf("nil class")
	}
	if len(class.EventTypes) == 0 {
		return fmt.Errorf("class %q declares no event types", class.Name)
	}

	k := key{provider: provider, version: version}
	byType := reg.classes[k]
	for _, et := range class.EventTypes {
		if existing, ok := byType[et]; ok {
			return &DuplicateEventTypeError{
				Provider:  provider,
				Version:   version,
				EventType: et,
				Existing:  existing.Name,
				New:       class.Name,
			}
		}
	}

	if byType == nil {
		byType = make(map[uint16]*Class)
		reg.classes[k] = byType
	}
	for _, et := range class.EventTypes {
		byType[et] = class
	}
	return nil
}

// Freeze ends the registration phase. Resolve stays valid; further
// Register calls fail with ErrFrozen.
func (reg *Registry) Freeze() {
	reg.frozen = true
}

// Frozen reports whether registration has ended.
func (reg *Registry) Frozen() bool {
	return reg.frozen
}

// Resolve performs the three-key lookup. The second return is false
// when no registered class claims the triple, which is a normal
// condition for producer traffic nobody consumes.
func (reg *Registry) Resolve(provider uuid.UUID, version uint8, eventType uint16) (*Class, bool) {
	byType, ok := reg.classes[key{provider: provider, version: version}]
	if !ok {
		return nil, false
	}
	class, ok := byType[eventType]
	return class, ok
}
