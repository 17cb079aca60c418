// Package hwres defines the shared hardware resources plugins can declare
// a dependency on, and that the Hardware Resource Bus (internal/hwbus) fans
// out signals to.
package hwres

// Resource is a bitset of hardware resources a plugin requires. A plugin
// may require more than one, so callers combine values with bitwise OR and
// test membership with Has.
type Resource uint32

const (
	// None is the zero value: the plugin requires no shared hardware.
	None Resource = 0

	// Radio433 is the shared 433MHz radio receiver/transmitter.
	Radio433 Resource = 1 << 0

	// Radio868 is the shared 868MHz radio receiver/transmitter.
	Radio868 Resource = 1 << 1

	// Timer is the shared periodic timer source.
	Timer Resource = 1 << 2

	// UpnpDiscovery is the shared UPnP/SSDP discovery listener.
	UpnpDiscovery Resource = 1 << 3

	// NetworkManager is the shared network connectivity/interface monitor.
	NetworkManager Resource = 1 << 4

	// Bluetooth is the shared Bluetooth/BLE adapter.
	Bluetooth Resource = 1 << 5
)

// Has reports whether r includes the given resource.
func (r Resource) Has(resource Resource) bool {
	return r&resource != 0
}

// All returns every declared resource, in fixed bit order, so iterating it
// is deterministic.
func All() []Resource {
	return []Resource{Radio433, Radio868, Timer, UpnpDiscovery, NetworkManager, Bluetooth}
}

// String returns a human-readable name for a single resource bit. For a
// combined bitset, callers should test with Has instead.
func (r Resource) String() string {
	switch r {
	case None:
		return "none"
	case Radio433:
		return "radio433"
	case Radio868:
		return "radio868"
	case Timer:
		return "timer"
	case UpnpDiscovery:
		return "upnp_discovery"
	case NetworkManager:
		return "network_manager"
	case Bluetooth:
		return "bluetooth"
	default:
		return "combined"
	}
}
