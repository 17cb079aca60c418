// Package ids defines the typed identifier kinds used across the
// DeviceManager control core. Each kind is its own string type so the Go
// compiler rejects passing, say, a DeviceClassID where a DeviceID is
// expected, even though both are plain UUID strings underneath.
package ids

import "github.com/google/uuid"

// PluginID identifies a loaded plugin (vendor-assigned, stable across
// builds of that plugin).
type PluginID string

// VendorID identifies a hardware vendor a plugin declares support for.
type VendorID string

// DeviceClassID identifies a device class within the catalog.
type DeviceClassID string

// DeviceID identifies a configured (or provisional) device instance.
type DeviceID string

// DeviceDescriptorID identifies a single discovered-but-unconfigured
// device descriptor returned by a plugin's discovery pass.
type DeviceDescriptorID string

// ParamTypeID identifies a parameter type definition within a device class,
// plugin configuration, or action type.
type ParamTypeID string

// ActionTypeID identifies an action type a device class supports.
type ActionTypeID string

// StateTypeID identifies a state type a device class reports.
type StateTypeID string

// EventTypeID identifies an event type, either derived automatically from a
// state type or declared independently by a device class.
type EventTypeID string

// PairingTransactionID identifies an in-flight pairing operation.
type PairingTransactionID string

// ActionID identifies a single dispatched action invocation, used to
// correlate an Async return with its later completion callback.
type ActionID string

// NewDeviceID returns a freshly generated DeviceID.
func NewDeviceID() DeviceID {
	return DeviceID(uuid.New().String())
}

// NewDeviceDescriptorID returns a freshly generated DeviceDescriptorID.
func NewDeviceDescriptorID() DeviceDescriptorID {
	return DeviceDescriptorID(uuid.New().String())
}

// NewPairingTransactionID returns a freshly generated PairingTransactionID.
func NewPairingTransactionID() PairingTransactionID {
	return PairingTransactionID(uuid.New().String())
}

// NewActionID returns a freshly generated ActionID.
func NewActionID() ActionID {
	return ActionID(uuid.New().String())
}
