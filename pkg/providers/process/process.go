// Package process describes the kernel process provider: process
// start and stop events, including the rundown variants enumerating
// processes already alive when a session starts.
package process

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/decode"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// ProviderGUID identifies the kernel process event family.
var ProviderGUID = uuid.MustParse("3d6fa8d0-fe05-11d0-9dda-00c04fd7ba7c")

// Event-type codes under ProviderGUID.
const (
	EventTypeStart   uint16 = 1
	EventTypeEnd     uint16 = 2
	EventTypeDCStart uint16 = 3
	EventTypeDCEnd   uint16 = 4
)

// Schema versions carried by records from this provider.
const (
	Version2 uint8 = 2
	Version3 uint8 = 3
)

// Register installs the process classes. Version 3 extends version 2
// with the process command line.
func Register(reg *schema.Registry) error {
	types := []uint16{EventTypeStart, EventTypeEnd, EventTypeDCStart, EventTypeDCEnd}

	v2 := schema.NewClass("Process_V2", types,
		schema.Field{Name: "UniqueProcessKey", Decode: decode.Pointer},
		schema.Field{Name: "ProcessId", Decode: decode.UInt32},
		schema.Field{Name: "ParentId", Decode: decode.UInt32},
		schema.Field{Name: "SessionId", Decode: decode.UInt32},
		schema.Field{Name: "ExitStatus", Decode: decode.Int32},
		schema.Field{Name: "UserSID", Decode: decode.SID},
		schema.Field{Name: "ImageFileName", Decode: decode.String},
	)
	if err := reg.Register(ProviderGUID, Version2, v2); err != nil {
		return fmt.Errorf("registering %s: %w", v2.Name, err)
	}

	v3 := schema.NewClass("Process_V3", types,
		schema.Field{Name: "UniqueProcessKey", Decode: decode.Pointer},
		schema.Field{Name: "ProcessId", Decode: decode.UInt32},
		schema.Field{Name: "ParentId", Decode: decode.UInt32},
		schema.Field{Name: "SessionId", Decode: decode.UInt32},
		schema.Field{Name: "ExitStatus", Decode: decode.Int32},
		schema.Field{Name: "UserSID", Decode: decode.SID},
		schema.Field{Name: "ImageFileName", Decode: decode.String},
		schema.Field{Name: "CommandLine", Decode: decode.WideString},
	)
	if err := reg.Register(ProviderGUID, Version3, v3); err != nil {
		return fmt.Errorf("registering %s: %w", v3.Name, err)
	}
	return nil
}
