// Package device defines the runtime records the control core holds for a
// configured device and for a not-yet-configured device descriptor
// surfaced during discovery.
package device

import (
	"time"

	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
)

// Device is a configured, named instance of a device class, owned by exactly
// one plugin. Its Params are the setup parameters it was created or paired
// with; its States holds the most recently observed value for each state
// type the owning device class declares.
//
// Device graphs (e.g. a gateway and the child devices it exposes) are
// represented by ParentID referencing another Device's ID, not by an
// embedded pointer: devices are copied freely between the registry cache
// and callers, and a pointer into a cached struct would alias across that
// boundary.
type Device struct {
	ID            ids.DeviceID
	DeviceClassID ids.DeviceClassID
	PluginID      ids.PluginID
	Name          string
	ParentID      *ids.DeviceID

	Params paramtype.ParamList
	States map[ids.StateTypeID]interface{}

	// SetupComplete is false from the moment addConfiguredDevice accepts the
	// device until the owning plugin's deviceSetupFinished callback reports
	// success. Actions are rejected while it is false.
	SetupComplete bool

	CreatedAt time.Time
}

// DeepCopy returns an independent copy of d. Modifying the copy never
// affects the original; this is what makes it safe to hand a *Device out of
// a registry cache.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d

	if d.ParentID != nil {
		parent := *d.ParentID
		cpy.ParentID = &parent
	}

	if d.Params != nil {
		cpy.Params = make(paramtype.ParamList, len(d.Params))
		copy(cpy.Params, d.Params)
	}

	if d.States != nil {
		cpy.States = make(map[ids.StateTypeID]interface{}, len(d.States))
		for k, v := range d.States {
			cpy.States[k] = v
		}
	}

	return &cpy
}

// State returns the last known value of stateTypeID and whether it has ever
// been set.
func (d *Device) State(stateTypeID ids.StateTypeID) (interface{}, bool) {
	v, ok := d.States[stateTypeID]
	return v, ok
}

// SetState records the last known value of stateTypeID.
func (d *Device) SetState(stateTypeID ids.StateTypeID, value interface{}) {
	if d.States == nil {
		d.States = make(map[ids.StateTypeID]interface{})
	}
	d.States[stateTypeID] = value
}

// Descriptor is a candidate device surfaced by a plugin's discovery or
// pairing flow but not yet configured. addConfiguredDevice (discovery
// variant) and pairDeviceDiscovery consume a Descriptor by ID; the former
// turns it into a Device at once, the latter once the pairing is confirmed.
type Descriptor struct {
	ID            ids.DeviceDescriptorID
	DeviceClassID ids.DeviceClassID
	Title         string
	Description   string
	ParentID      *ids.DeviceID
	Params        paramtype.ParamList
}

// DeepCopy returns an independent copy of the descriptor.
func (d *Descriptor) DeepCopy() *Descriptor {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.ParentID != nil {
		parent := *d.ParentID
		cpy.ParentID = &parent
	}
	if d.Params != nil {
		cpy.Params = make(paramtype.ParamList, len(d.Params))
		copy(cpy.Params, d.Params)
	}
	return &cpy
}

// Action is an imperative request against a configured device.
type Action struct {
	ID           ids.ActionID
	DeviceID     ids.DeviceID
	ActionTypeID ids.ActionTypeID
	Params       paramtype.ParamList
}

// Event is a fact about a device: either synthesized from a state change or
// emitted verbatim by the owning plugin.
type Event struct {
	EventTypeID        ids.EventTypeID
	DeviceID           ids.DeviceID
	Params             paramtype.ParamList
	IsStateChangeEvent bool
}
