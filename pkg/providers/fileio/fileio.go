// Package fileio describes the kernel file I/O provider: file create
// and read/write completion events.
package fileio

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/decode"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// ProviderGUID identifies the kernel file I/O event family.
var ProviderGUID = uuid.MustParse("90cbdc39-4a3e-11d1-84f4-0000f80464e3")

// Event-type codes under ProviderGUID.
const (
	EventTypeCreate uint16 = 64
	EventTypeRead   uint16 = 67
	EventTypeWrite  uint16 = 68
)

// Version2 is the schema version carried by records from this provider.
const Version2 uint8 = 2

// Register installs the file I/O classes. Create and read/write have
// different layouts, so they are two classes under one key with
// disjoint event-type sets.
func Register(reg *schema.Registry) error {
	create := schema.NewClass("FileIo_Create_V2",
		[]uint16{EventTypeCreate},
		schema.Field{Name: "IrpPtr", Decode: decode.Pointer},
		schema.Field{Name: "TTID", Decode: decode.Pointer},
		schema.Field{Name: "FileObject", Decode: decode.Pointer},
		schema.Field{Name: "CreateOptions", Decode: decode.UInt32},
		schema.Field{Name: "FileAttributes", Decode: decode.UInt32},
		schema.Field{Name: "ShareAccess", Decode: decode.UInt32},
		schema.Field{Name: "OpenPath", Decode: decode.WideString},
	)
	if err := reg.Register(ProviderGUID, Version2, create); err != nil {
		return fmt.Errorf("registering %s: %w", create.Name, err)
	}

	rw := schema.NewClass("FileIo_ReadWrite_V2",
		[]uint16{EventTypeRead, EventTypeWrite},
		schema.Field{Name: "Offset", Decode: decode.UInt64},
		schema.Field{Name: "IrpPtr", Decode: decode.Pointer},
		schema.Field{Name: "TTID", Decode: decode.Pointer},
		schema.Field{Name: "FileObject", Decode: decode.Pointer},
		schema.Field{Name: "IoSize", Decode: decode.UInt32},
		schema.Field{Name: "IoFlags", Decode: decode.UInt32},
	)
	if err := reg.Register(ProviderGUID, Version2, rw); err != nil {
		return fmt.Errorf("registering %s: %w", rw.Name, err)
	}
	return nil
}
