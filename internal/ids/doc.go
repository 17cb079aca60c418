// Package ids defines the typed identifier kinds shared across the
// DeviceManager control core: PluginID, VendorID, DeviceClassID, DeviceID,
// DeviceDescriptorID, ParamTypeID, ActionTypeID, StateTypeID, EventTypeID,
// PairingTransactionID and ActionID. Each is a distinct Go string type so a
// value of one kind cannot be passed where another kind is expected,
// despite sharing the same UUID representation at runtime.
package ids
