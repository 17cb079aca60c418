// Package catalog holds the registry of vendors and device classes
// declared by loaded plugins, along with the action, state and event
// types each device class exposes.
package catalog

import (
	"fmt"
	"sync"

	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
)

// CreateMethod is a way a device of some class may come into existence.
type CreateMethod int

const (
	CreateMethodUser CreateMethod = iota
	CreateMethodDiscovery
	CreateMethodAuto
)

// SetupMethod is the handshake a device class's pairing flow uses.
type SetupMethod int

const (
	SetupMethodJustAdd SetupMethod = iota
	SetupMethodDisplayPin
	SetupMethodEnterPin
	SetupMethodPushButton
)

// Vendor is a device manufacturer or protocol family a plugin supports.
type Vendor struct {
	ID   ids.VendorID
	Name string
}

// StateType declares a named, typed state slot a device of some class can
// report.
type StateType struct {
	ID   ids.StateTypeID
	Name string
	Type paramtype.ValueType
}

// ActionType declares a named, parametrised imperative request a device of
// some class accepts.
type ActionType struct {
	ID         ids.ActionTypeID
	Name       string
	ParamTypes []paramtype.ParamType
}

// EventType declares a named, parametrised fact a device of some class can
// emit. Every StateType auto-defines an EventType of identical ID carrying
// a single "value" param; see DeviceClass.
type EventType struct {
	ID         ids.EventTypeID
	Name       string
	ParamTypes []paramtype.ParamType
}

// DeviceClass is the type description a plugin publishes; devices are
// configured instances of it.
type DeviceClass struct {
	ID       ids.DeviceClassID
	VendorID ids.VendorID
	PluginID ids.PluginID
	Name     string

	CreateMethods []CreateMethod
	SetupMethod   SetupMethod

	ParamTypes          []paramtype.ParamType
	DiscoveryParamTypes []paramtype.ParamType

	StateTypes  []StateType
	ActionTypes []ActionType
	EventTypes  []EventType
}

// SupportsCreateMethod reports whether m is one of the class's declared
// creation methods.
func (c DeviceClass) SupportsCreateMethod(m CreateMethod) bool {
	for _, cm := range c.CreateMethods {
		if cm == m {
			return true
		}
	}
	return false
}

// ActionType returns the named action type declared by the class.
func (c DeviceClass) ActionType(id ids.ActionTypeID) (ActionType, bool) {
	for _, at := range c.ActionTypes {
		if at.ID == id {
			return at, true
		}
	}
	return ActionType{}, false
}

// StateType returns the named state type declared by the class.
func (c DeviceClass) StateType(id ids.StateTypeID) (StateType, bool) {
	for _, st := range c.StateTypes {
		if st.ID == id {
			return st, true
		}
	}
	return StateType{}, false
}

// EventType returns the named event type declared by the class.
func (c DeviceClass) EventType(id ids.EventTypeID) (EventType, bool) {
	for _, et := range c.EventTypes {
		if et.ID == id {
			return et, true
		}
	}
	return EventType{}, false
}

// Catalog is the registry of vendors and device classes absorbed from
// loaded plugins. It is populated at plugin load time and read thereafter;
// its methods are safe for concurrent use though the dispatcher model means
// mutation only ever happens from one goroutine at a time in practice.
type Catalog struct {
	mu      sync.RWMutex
	vendors map[ids.VendorID]Vendor
	classes map[ids.DeviceClassID]DeviceClass
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		vendors: make(map[ids.VendorID]Vendor),
		classes: make(map[ids.DeviceClassID]DeviceClass),
	}
}

// RegisterVendor adds or replaces a vendor entry.
func (c *Catalog) RegisterVendor(v Vendor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vendors[v.ID] = v
}

// RegisterDeviceClass adds a device class to the catalog. It enforces the
// invariant that every declared StateType auto-defines an EventType of
// identical ID carrying a single "value" param: callers need not (and
// should not) declare that event type themselves, but if they do it must
// match exactly or registration fails.
func (c *Catalog) RegisterDeviceClass(class DeviceClass) error {
	for _, st := range class.StateTypes {
		derived := EventType{
			ID:   ids.EventTypeID(st.ID),
			Name: st.Name,
			ParamTypes: []paramtype.ParamType{
				{Name: "value", Type: st.Type},
			},
		}
		if existing, ok := class.EventType(derived.ID); ok {
			if existing.Name != derived.Name || len(existing.ParamTypes) != 1 || existing.ParamTypes[0].Name != "value" || existing.ParamTypes[0].Type != st.Type {
				return deviceerr.Wrap(deviceerr.CategorySetup, "RegisterDeviceClass",
					fmt.Errorf("%w: state type %q's auto-derived event type conflicts with an explicitly declared one", deviceerr.ErrSetupFailed, st.ID))
			}
			continue
		}
		class.EventTypes = append(class.EventTypes, derived)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[class.ID] = class
	return nil
}

// Vendor looks up a vendor by ID.
func (c *Catalog) Vendor(id ids.VendorID) (Vendor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vendors[id]
	if !ok {
		return Vendor{}, deviceerr.Wrap(deviceerr.CategoryLookup, "Vendor", deviceerr.ErrVendorNotFound)
	}
	return v, nil
}

// DeviceClass looks up a device class by ID.
func (c *Catalog) DeviceClass(id ids.DeviceClassID) (DeviceClass, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[id]
	if !ok {
		return DeviceClass{}, deviceerr.Wrap(deviceerr.CategoryLookup, "DeviceClass", deviceerr.ErrDeviceClassNotFound)
	}
	return class, nil
}

// SupportedVendors returns every registered vendor.
func (c *Catalog) SupportedVendors() []Vendor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Vendor, 0, len(c.vendors))
	for _, v := range c.vendors {
		out = append(out, v)
	}
	return out
}

// EventTypeExists reports whether id is declared (explicitly or
// auto-derived from a state type) by any registered device class. The
// rule engine uses this to reject AddRule calls naming an unknown trigger.
func (c *Catalog) EventTypeExists(id ids.EventTypeID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, class := range c.classes {
		if _, ok := class.EventType(id); ok {
			return true
		}
	}
	return false
}

// SupportedDeviceClasses returns every registered device class, optionally
// filtered to a single vendor.
func (c *Catalog) SupportedDeviceClasses(vendorID *ids.VendorID) []DeviceClass {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DeviceClass, 0, len(c.classes))
	for _, class := range c.classes {
		if vendorID != nil && class.VendorID != *vendorID {
			continue
		}
		out = append(out, class)
	}
	return out
}
