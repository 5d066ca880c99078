// Package image describes the kernel image provider: module load and
// unload events plus the session-start rundown variants.
package image

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/decode"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// ProviderGUID identifies the kernel image-load event family.
var ProviderGUID = uuid.MustParse("2cb15d1d-5fc1-11d2-abe1-00a0c911f518")

// Event-type codes under ProviderGUID. Load is 10, not 1: type 1 was
// retired with the version 0 layout.
const (
	EventTypeLoad    uint16 = 10
	EventTypeUnload  uint16 = 2
	EventTypeDCStart uint16 = 3
	EventTypeDCEnd   uint16 = 4
)

// Version2 is the schema version carried by records from this provider.
const Version2 uint8 = 2

// Register installs the image load/unload class.
func Register(reg *schema.Registry) error {
	c := schema.NewClass("Image_V2",
		[]uint16{EventTypeLoad, EventTypeUnload, EventTypeDCStart, EventTypeDCEnd},
		schema.Field{Name: "ImageBase", Decode: decode.Pointer},
		schema.Field{Name: "ImageSize", Decode: decode.Pointer},
		schema.Field{Name: "ProcessId", Decode: decode.UInt32},
		schema.Field{Name: "ImageChecksum", Decode: decode.UInt32},
		schema.Field{Name: "TimeDateStamp", Decode: decode.UInt32},
		schema.Field{Name: "FileName", Decode: decode.WideString},
	)
	if err := reg.Register(ProviderGUID, Version2, c); err != nil {
		return fmt.Errorf("registering %s: %w", c.Name, err)
	}
	return nil
}
