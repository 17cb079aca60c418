// Package plugin defines the contract every device plugin implements and
// the registry that loads, holds, and mediates callbacks for them.
package plugin

import (
	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/hwres"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
)

// SetupStatus is the outcome of an operation a plugin may complete either
// synchronously or later via a matching Sink callback.
type SetupStatus int

const (
	StatusSuccess SetupStatus = iota
	StatusFailure
	StatusAsync
)

func (s SetupStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Plugin is the contract every device plugin implements. The registry
// calls into a Plugin from the single dispatcher goroutine; a Plugin must
// not block on hardware I/O inside these methods — long work is offloaded
// by the plugin itself, which returns StatusAsync or deviceerr.Async and
// later reports completion through the Sink it was registered with.
type Plugin interface {
	PluginID() ids.PluginID
	PluginName() string

	SupportedVendors() []catalog.Vendor
	SupportedDevices() []catalog.DeviceClass
	ConfigurationDescription() []paramtype.ParamType
	RequiredHardware() hwres.Resource

	SetConfiguration(params paramtype.ParamList) error
	Configuration() paramtype.ParamList

	// DiscoverDevices returns nil immediately on success, a deviceerr on
	// failure, or deviceerr.Async if discovery completes later via the
	// Sink's DevicesDiscovered callback for the same deviceClassId.
	DiscoverDevices(classID ids.DeviceClassID, params paramtype.ParamList) error

	SetupDevice(dev *device.Device) SetupStatus
	ConfirmPairing(txnID ids.PairingTransactionID, classID ids.DeviceClassID, params paramtype.ParamList) SetupStatus

	// ExecuteAction returns nil on success, a deviceerr on failure, or
	// deviceerr.Async if completion arrives later via the Sink's
	// ActionExecutionFinished callback for the same action id.
	ExecuteAction(dev *device.Device, action device.Action) error

	StartMonitoringAutoDevices()
	DeviceRemoved(dev *device.Device)

	// Hardware callbacks, delivered by the bus only to plugins whose
	// RequiredHardware intersects the source.
	RadioData(raw []byte)
	UpnpDiscoveryFinished(results [][]byte)
	UpnpNotifyReceived(data []byte)
	GuhTimer()
}

// Sink receives the signals a Plugin originates: discovery results, setup
// and action completions, pairing outcomes, auto-discovered devices, state
// changes, and plugin-emitted events. The device lifecycle manager
// implements Sink; the registry is the only thing plugins hold a
// reference to.
type Sink interface {
	DevicesDiscovered(pluginID ids.PluginID, classID ids.DeviceClassID, descriptors []device.Descriptor)
	DeviceSetupFinished(pluginID ids.PluginID, deviceID ids.DeviceID, status SetupStatus)
	ActionExecutionFinished(pluginID ids.PluginID, actionID ids.ActionID, status SetupStatus)
	PairingFinished(pluginID ids.PluginID, txnID ids.PairingTransactionID, status SetupStatus)
	AutoDevicesAppeared(pluginID ids.PluginID, classID ids.DeviceClassID, descriptors []device.Descriptor)
	EmitEvent(pluginID ids.PluginID, event device.Event)
	StateValueChanged(pluginID ids.PluginID, deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{})
}
