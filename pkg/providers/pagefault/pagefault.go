// Package pagefault describes the kernel page-fault provider: soft
// fault transitions and hard faults that hit the disk.
package pagefault

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/decode"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// ProviderGUID identifies the kernel page-fault event family.
var ProviderGUID = uuid.MustParse("3d6fa8d1-fe05-11d0-9dda-00c04fd7ba7c")

// Event-type codes under ProviderGUID.
const (
	EventTypeTransitionFault uint16 = 10
	EventTypeDemandZeroFault uint16 = 11
	EventTypeCopyOnWrite     uint16 = 12
	EventTypeGuardPageFault  uint16 = 13
	EventTypeHardFault       uint16 = 32
)

// Version2 is the schema version carried by records from this provider.
const Version2 uint8 = 2

// Register installs the page-fault classes.
func Register(reg *schema.Registry) error {
	soft := schema.NewClass("PageFault_V2",
		[]uint16{EventTypeTransitionFault, EventTypeDemandZeroFault, EventTypeCopyOnWrite, EventTypeGuardPageFault},
		schema.Field{Name: "VirtualAddress", Decode: decode.Pointer},
		schema.Field{Name: "ProgramCounter", Decode: decode.Pointer},
	)
	if err := reg.Register(ProviderGUID, Version2, soft); err != nil {
		return fmt.Errorf("registering %s: %w", soft.Name, err)
	}

	hard := schema.NewClass("PageFault_HardFault_V2",
		[]uint16{EventTypeHardFault},
		schema.Field{Name: "InitialTime", Decode: decode.TimeStamp},
		schema.Field{Name: "ReadOffset", Decode: decode.UInt64},
		schema.Field{Name: "VirtualAddress", Decode: decode.Pointer},
		schema.Field{Name: "FileObject", Decode: decode.Pointer},
		schema.Field{Name: "TThreadId", Decode: decode.UInt32},
		schema.Field{Name: "ByteCount", Decode: decode.UInt32},
	)
	if err := reg.Register(ProviderGUID, Version2, hard); err != nil {
		return fmt.Errorf("registering %s: %w", hard.Name, err)
	}
	return nil
}
