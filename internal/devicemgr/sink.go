package devicemgr

import (
	"time"

	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/plugin"
)

// Manager implements plugin.Sink: it is the single destination every
// registered plugin's callbacks are mediated through by the registry.

// DevicesDiscovered stores the descriptors a plugin reports after
// DiscoverDevices returned deviceerr.Async. Descriptors without an ID are
// assigned one.
func (m *Manager) DevicesDiscovered(pluginID ids.PluginID, classID ids.DeviceClassID, descriptors []device.Descriptor) {
	m.mu.Lock()
	for _, d := range descriptors {
		if d.ID == "" {
			d.ID = ids.NewDeviceDescriptorID()
		}
		if d.DeviceClassID == "" {
			d.DeviceClassID = classID
		}
		m.discovered[d.ID] = d
	}
	m.mu.Unlock()

	m.registry.ClearDiscovering(pluginID)

	if m.publisher != nil {
		m.publisher.DevicesDiscovered(classID, descriptors)
	}
}

// DeviceSetupFinished resolves a provisionally held device's async setup
// outcome. A device not currently held provisionally is either already
// set up or unknown; either way the callback is unsolicited and dropped.
func (m *Manager) DeviceSetupFinished(_ ids.PluginID, deviceID ids.DeviceID, status plugin.SetupStatus) {
	m.mu.Lock()
	dev, ok := m.provisional[deviceID]
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("dropped deviceSetupFinished for device not pending setup", "device_id", deviceID)
		return
	}

	switch status {
	case plugin.StatusSuccess:
		var p plugin.Plugin
		if found, err := m.registry.Plugin(dev.PluginID); err == nil {
			p = found
		}
		m.activateDevice(dev, p)
	case plugin.StatusFailure:
		m.mu.Lock()
		delete(m.provisional, deviceID)
		m.mu.Unlock()
		m.notifySetupFinished(dev, deviceErrSetupFailed())
	default:
		m.logger.Warn("dropped deviceSetupFinished with non-terminal status", "device_id", deviceID)
	}
}

// ActionExecutionFinished forwards to the action dispatcher's completion
// table.
func (m *Manager) ActionExecutionFinished(_ ids.PluginID, actionID ids.ActionID, status plugin.SetupStatus) {
	if m.actionSink != nil {
		m.actionSink.ActionExecutionFinished(actionID, status)
	}
}

// PairingFinished resolves an async Discovery-table pairing transaction.
func (m *Manager) PairingFinished(_ ids.PluginID, txnID ids.PairingTransactionID, status plugin.SetupStatus) {
	m.onPairingFinished(txnID, status)
}

// AutoDevicesAppeared runs each asserted descriptor straight through
// setup, bypassing the discovery descriptor table and any user consent
// step.
func (m *Manager) AutoDevicesAppeared(_ ids.PluginID, classID ids.DeviceClassID, descriptors []device.Descriptor) {
	class, err := m.catalog.DeviceClass(classID)
	if err != nil {
		m.logger.Warn("autoDevicesAppeared for unknown device class", "class_id", classID, "error", err)
		return
	}
	if !classSupportsAuto(class) {
		m.logger.Warn("autoDevicesAppeared for class without Auto create method", "class_id", classID)
		return
	}

	for _, descriptor := range descriptors {
		filled, err := m.validator.VerifyParams(class.ParamTypes, descriptor.Params, true)
		if err != nil {
			m.logger.Warn("autoDevicesAppeared descriptor failed validation", "class_id", classID, "error", err)
			continue
		}

		dev := &device.Device{
			ID:            ids.NewDeviceID(),
			DeviceClassID: classID,
			PluginID:      class.PluginID,
			ParentID:      descriptor.ParentID,
			Params:        filled,
			States:        make(map[ids.StateTypeID]interface{}),
			CreatedAt:     time.Now(),
		}

		if err := m.runSetup(class, dev); err != nil && !isAsyncOrNil(err) {
			m.logger.Warn("autoDevicesAppeared setup failed", "device_id", dev.ID, "error", err)
		}
	}
}

// EmitEvent forwards a plugin-originated event verbatim to the event
// channel.
func (m *Manager) EmitEvent(_ ids.PluginID, ev device.Event) {
	if m.eventSink != nil {
		m.eventSink.EmitEvent(ev)
	}
}

// StateValueChanged forwards a device state update to the event channel.
func (m *Manager) StateValueChanged(_ ids.PluginID, deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) {
	if m.eventSink != nil {
		m.eventSink.StateValueChanged(deviceID, stateTypeID, value)
	}
}
