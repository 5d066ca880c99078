// Package providers wires every descriptor package into one
// registration call. Each subpackage describes one logical event
// family and owns its provider GUID, event-type codes, and payload
// layouts.
package providers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yairfalse/etwtap/pkg/providers/fileio"
	"github.com/yairfalse/etwtap/pkg/providers/image"
	"github.com/yairfalse/etwtap/pkg/providers/pagefault"
	"github.com/yairfalse/etwtap/pkg/providers/process"
	"github.com/yairfalse/etwtap/pkg/providers/tcpip"
	"github.com/yairfalse/etwtap/pkg/schema"
)

// RegisterAll installs every built-in event family into the registry.
// A registration failure is fatal configuration: it means two
// descriptors claim the same event-type code.
func RegisterAll(reg *schema.Registry) error {
	for _, register := range []func(*schema.Registry) error{
		process.Register,
		image.Register,
		fileio.Register,
		pagefault.Register,
		tcpip.Register,
	} {
		if err := register(reg); err != nil {
			return fmt.Errorf("installing event families: %w", err)
		}
	}
	return nil
}

// Interests lists every event-type code of every built-in family,
// keyed by provider GUID. Observers that want everything, like the
// relay, subscribe from this.
func Interests() map[uuid.UUID][]uint16 {
	return map[uuid.UUID][]uint16{
		process.ProviderGUID: {
			process.EventTypeStart, process.EventTypeEnd,
			process.EventTypeDCStart, process.EventTypeDCEnd,
		},
		image.ProviderGUID: {
			image.EventTypeLoad, image.EventTypeUnload,
			image.EventTypeDCStart, image.EventTypeDCEnd,
		},
		fileio.ProviderGUID: {
			fileio.EventTypeCreate, fileio.EventTypeRead, fileio.EventTypeWrite,
		},
		pagefault.ProviderGUID: {
			pagefault.EventTypeTransitionFault, pagefault.EventTypeDemandZeroFault,
			pagefault.EventTypeCopyOnWrite, pagefault.EventTypeGuardPageFault,
			pagefault.EventTypeHardFault,
		},
		tcpip.ProviderGUID: {
			tcpip.EventTypeSend, tcpip.EventTypeRecv, tcpip.EventTypeConnect,
			tcpip.EventTypeDisconnect, tcpip.EventTypeRetransmit, tcpip.EventTypeAccept,
		},
	}
}
