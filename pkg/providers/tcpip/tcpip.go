// Package tcpip describes the kernel TCP/IP provider (IPv4 events).
package tcpip

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/decode"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// ProviderGUID identifies the kernel TCP/IP event family.
var ProviderGUID = uuid.MustParse("9a280ac0-c8e0-11d1-84e2-00c04fb998a2")

// Event-type codes under ProviderGUID.
const (
	EventTypeSend       uint16 = 10
	EventTypeRecv       uint16 = 11
	EventTypeConnect    uint16 = 12
	EventTypeDisconnect uint16 = 13
	EventTypeRetransmit uint16 = 14
	EventTypeAccept     uint16 = 15
)

// Version2 is the schema version carried by records from this provider.
const Version2 uint8 = 2

// Register installs the TCP/IP class. Addresses decode as raw
// big-endian uint32s the way the producer wrote them; rendering is an
// observer concern.
func Register(reg *schema.Registry) error {
	c := schema.NewClass("TcpIp_V2",
		[]uint16{EventTypeSend, EventTypeRecv, EventTypeConnect, EventTypeDisconnect, EventTypeRetransmit, EventTypeAccept},
		schema.Field{Name: "PID", Decode: decode.UInt32},
		schema.Field{Name: "Size", Decode: decode.UInt32},
		schema.Field{Name: "DestAddr", Decode: decode.UInt32},
		schema.Field{Name: "SrcAddr", Decode: decode.UInt32},
		schema.Field{Name: "DestPort", Decode: decode.UInt16},
		schema.Field{Name: "SrcPort", Decode: decode.UInt16},
	)
	if err := reg.Register(ProviderGUID, Version2, c); err != nil {
		return fmt.Errorf("registering %s: %w", c.Name, err)
	}
	return nil
}
