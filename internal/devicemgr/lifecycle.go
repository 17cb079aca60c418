package devicemgr

import (
	"fmt"
	"time"

	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/hwres"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
	"github.com/homectl/devicecore/internal/plugin"
)

// AddConfiguredDeviceUser creates a device of classID from user-supplied
// params. id, if non-nil, fixes the new device's ID (used to reject
// duplicates deterministically in tests and to let callers pre-allocate
// an ID before the call); otherwise one is generated.
func (m *Manager) AddConfiguredDeviceUser(classID ids.DeviceClassID, params paramtype.ParamList, id *ids.DeviceID) (ids.DeviceID, error) {
	class, err := m.catalog.DeviceClass(classID)
	if err != nil {
		return "", err
	}
	if !class.SupportsCreateMethod(catalog.CreateMethodUser) {
		return "", deviceerr.Wrap(deviceerr.CategorySetup, "AddConfiguredDeviceUser",
			fmt.Errorf("%w: device class %q", deviceerr.ErrCreationMethodNotSupported, classID))
	}

	filled, err := m.validator.VerifyParams(class.ParamTypes, params, true)
	if err != nil {
		return "", err
	}

	deviceID := ids.NewDeviceID()
	if id != nil {
		deviceID = *id
	}

	m.mu.Lock()
	if m.isKnownDeviceID(deviceID) {
		m.mu.Unlock()
		return "", deviceerr.Wrap(deviceerr.CategorySetup, "AddConfiguredDeviceUser",
			fmt.Errorf("%w: device id %q", deviceerr.ErrDuplicateUuid, deviceID))
	}
	m.mu.Unlock()

	dev := &device.Device{
		ID:            deviceID,
		DeviceClassID: classID,
		PluginID:      class.PluginID,
		Params:        filled,
		States:        make(map[ids.StateTypeID]interface{}),
		CreatedAt:     time.Now(),
	}

	return deviceID, m.runSetup(class, dev)
}

// AddConfiguredDeviceFromDescriptor creates a device of classID from a
// previously discovered descriptor, consuming it.
func (m *Manager) AddConfiguredDeviceFromDescriptor(classID ids.DeviceClassID, descriptorID ids.DeviceDescriptorID, id *ids.DeviceID) (ids.DeviceID, error) {
	class, err := m.catalog.DeviceClass(classID)
	if err != nil {
		return "", err
	}
	if !class.SupportsCreateMethod(catalog.CreateMethodDiscovery) {
		return "", deviceerr.Wrap(deviceerr.CategorySetup, "AddConfiguredDeviceFromDescriptor",
			fmt.Errorf("%w: device class %q", deviceerr.ErrCreationMethodNotSupported, classID))
	}

	m.mu.Lock()
	descriptor, ok := m.discovered[descriptorID]
	if !ok {
		m.mu.Unlock()
		return "", deviceerr.Wrap(deviceerr.CategoryLookup, "AddConfiguredDeviceFromDescriptor", deviceerr.ErrDeviceDescriptorNotFound)
	}
	delete(m.discovered, descriptorID)
	m.mu.Unlock()

	filled, err := m.validator.VerifyParams(class.ParamTypes, descriptor.Params, true)
	if err != nil {
		return "", err
	}

	deviceID := ids.NewDeviceID()
	if id != nil {
		deviceID = *id
	}

	m.mu.Lock()
	if m.isKnownDeviceID(deviceID) {
		m.mu.Unlock()
		return "", deviceerr.Wrap(deviceerr.CategorySetup, "AddConfiguredDeviceFromDescriptor",
			fmt.Errorf("%w: device id %q", deviceerr.ErrDuplicateUuid, deviceID))
	}
	m.mu.Unlock()

	dev := &device.Device{
		ID:            deviceID,
		DeviceClassID: classID,
		PluginID:      class.PluginID,
		ParentID:      descriptor.ParentID,
		Params:        filled,
		States:        make(map[ids.StateTypeID]interface{}),
		CreatedAt:     time.Now(),
	}

	return deviceID, m.runSetup(class, dev)
}

// DiscoverDevices asks classID's owning plugin to search for devices of
// that class. A plugin that cannot answer immediately returns
// deviceerr.Async; DiscoverDevices then marks the plugin discovering so
// the hardware bus fans hardware events to it until its results arrive
// through the Sink's DevicesDiscovered callback.
func (m *Manager) DiscoverDevices(classID ids.DeviceClassID, params paramtype.ParamList) error {
	class, err := m.catalog.DeviceClass(classID)
	if err != nil {
		return err
	}

	p, err := m.registry.Plugin(class.PluginID)
	if err != nil {
		return err
	}

	err = p.DiscoverDevices(classID, params)
	if deviceerr.IsAsync(err) {
		m.registry.MarkDiscovering(class.PluginID)
	}
	return err
}

// isKnownDeviceID reports whether deviceID is already configured or
// pending an async setup completion. Callers must hold m.mu.
func (m *Manager) isKnownDeviceID(deviceID ids.DeviceID) bool {
	if _, ok := m.configured[deviceID]; ok {
		return true
	}
	if _, ok := m.provisional[deviceID]; ok {
		return true
	}
	return false
}

// runSetup invokes the owning plugin's SetupDevice and routes the outcome:
// Success persists and activates the device, Failure discards it, Async
// holds it provisionally pending a later DeviceSetupFinished callback.
func (m *Manager) runSetup(class catalog.DeviceClass, dev *device.Device) error {
	p, err := m.registry.Plugin(class.PluginID)
	if err != nil {
		return err
	}

	status := p.SetupDevice(dev)
	switch status {
	case plugin.StatusSuccess:
		m.activateDevice(dev, p)
		return nil
	case plugin.StatusFailure:
		return deviceerr.Wrap(deviceerr.CategorySetup, "runSetup", deviceerr.ErrSetupFailed)
	case plugin.StatusAsync:
		m.mu.Lock()
		m.provisional[dev.ID] = dev
		m.mu.Unlock()
		return deviceerr.Async
	default:
		return deviceerr.Wrap(deviceerr.CategorySetup, "runSetup",
			fmt.Errorf("%w: plugin returned unrecognised setup status", deviceerr.ErrSetupFailed))
	}
}

// activateDevice marks dev set up, stores and persists it, and starts the
// shared timer if its plugin requires one. Callers must not hold m.mu.
func (m *Manager) activateDevice(dev *device.Device, p plugin.Plugin) {
	dev.SetupComplete = true

	m.mu.Lock()
	delete(m.provisional, dev.ID)
	m.configured[dev.ID] = dev
	m.mu.Unlock()

	if err := m.persistence.SaveDevice(dev); err != nil {
		m.logger.Error("failed to persist configured device", "device_id", dev.ID, "error", err)
	}
	m.registerTimerUserIfNeeded(dev, p)
	m.notifySetupFinished(dev, nil)
}

// RemoveConfiguredDevice tears a device down: it is removed from the
// configured set, the owning plugin is notified, its timer registration
// (if any) is released, and its persisted settings group is deleted.
func (m *Manager) RemoveConfiguredDevice(deviceID ids.DeviceID) error {
	m.mu.Lock()
	dev, ok := m.configured[deviceID]
	if !ok {
		m.mu.Unlock()
		return deviceerr.Wrap(deviceerr.CategoryLookup, "RemoveConfiguredDevice", deviceerr.ErrDeviceNotFound)
	}
	delete(m.configured, deviceID)
	m.mu.Unlock()

	if p, err := m.registry.Plugin(dev.PluginID); err == nil {
		p.DeviceRemoved(dev)
		if p.RequiredHardware().Has(hwres.Timer) {
			m.bus.UnregisterTimerUser(deviceID)
		}
	} else {
		m.logger.Warn("removing device whose plugin is no longer registered", "device_id", deviceID, "plugin_id", dev.PluginID)
	}

	if err := m.persistence.DeleteDevice(deviceID); err != nil {
		m.logger.Error("failed to delete persisted device", "device_id", deviceID, "error", err)
	}
	return nil
}
