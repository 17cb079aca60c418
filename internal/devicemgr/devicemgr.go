// Package devicemgr implements the per-device state machine: discovery,
// pairing, setup, running and removal. It owns every configured device,
// every pending device descriptor, and the two pairing transaction
// tables, and is the single place allowed to mutate any of them.
package devicemgr

import (
	"sync"

	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/hwbus"
	"github.com/homectl/devicecore/internal/hwres"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
	"github.com/homectl/devicecore/internal/plugin"
)

// Logger is the logging interface the manager uses for dropped-callback
// and lifecycle diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher receives the notifications the manager raises as devices move
// through the lifecycle: setup completions, discovery results, pairing
// outcomes. The events channel (C7) implements this alongside its own
// state-change publishing.
type Publisher interface {
	DeviceSetupFinished(dev *device.Device, err error)
	DevicesDiscovered(classID ids.DeviceClassID, descriptors []device.Descriptor)
	PairingFinished(txnID ids.PairingTransactionID, dev *device.Device, err error)
}

// ActionSink receives forwarded action completions for the dispatcher (C6)
// to resolve against its in-flight action table.
type ActionSink interface {
	ActionExecutionFinished(actionID ids.ActionID, status plugin.SetupStatus)
}

// EventSink receives forwarded plugin-originated state changes and events
// for the event channel (C7) to publish.
type EventSink interface {
	StateValueChanged(deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{})
	EmitEvent(ev device.Event)
}

// PersistenceAdapter loads and stores configured-device records, and
// per-plugin configuration values, through an injected settings interface
// (C9).
type PersistenceAdapter interface {
	SaveDevice(dev *device.Device) error
	DeleteDevice(deviceID ids.DeviceID) error
	LoadDevices() ([]*device.Device, error)
	SetPluginParam(pluginID ids.PluginID, paramName string, value interface{}) error
}

type pairingJustAdd struct {
	classID ids.DeviceClassID
	params  paramtype.ParamList
}

type pairingDiscovery struct {
	classID    ids.DeviceClassID
	descriptor device.Descriptor
}

// Manager is the device lifecycle state machine. All public methods are
// safe for concurrent use; the single-threaded dispatcher model means they
// are never actually contended in practice, but the mutex makes the code
// correct even if that assumption is relaxed.
type Manager struct {
	mu sync.Mutex

	catalog   *catalog.Catalog
	registry  *plugin.Registry
	bus       *hwbus.Bus
	validator paramtype.Validator

	persistence PersistenceAdapter
	publisher   Publisher
	actionSink  ActionSink
	eventSink   EventSink
	logger      Logger

	configured  map[ids.DeviceID]*device.Device
	provisional map[ids.DeviceID]*device.Device
	discovered  map[ids.DeviceDescriptorID]device.Descriptor

	pairingsJustAdd   map[ids.PairingTransactionID]pairingJustAdd
	pairingsDiscovery map[ids.PairingTransactionID]pairingDiscovery
}

// New returns an empty Manager. SetPublisher, SetActionSink and
// SetEventSink must be called before lifecycle operations that raise
// notifications are exercised for real; until then, notifications are
// silently swallowed, which is convenient for unit tests that only assert
// on Manager's own state.
func New(cat *catalog.Catalog, registry *plugin.Registry, bus *hwbus.Bus, persistence PersistenceAdapter) *Manager {
	return &Manager{
		catalog:           cat,
		registry:          registry,
		bus:               bus,
		persistence:       persistence,
		logger:            noopLogger{},
		configured:        make(map[ids.DeviceID]*device.Device),
		provisional:       make(map[ids.DeviceID]*device.Device),
		discovered:        make(map[ids.DeviceDescriptorID]device.Descriptor),
		pairingsJustAdd:   make(map[ids.PairingTransactionID]pairingJustAdd),
		pairingsDiscovery: make(map[ids.PairingTransactionID]pairingDiscovery),
	}
}

func (m *Manager) SetLogger(logger Logger)         { m.logger = logger }
func (m *Manager) SetPublisher(p Publisher)        { m.publisher = p }
func (m *Manager) SetActionSink(s ActionSink)      { m.actionSink = s }
func (m *Manager) SetEventSink(s EventSink)         { m.eventSink = s }

func (m *Manager) notifySetupFinished(dev *device.Device, err error) {
	if m.publisher != nil {
		m.publisher.DeviceSetupFinished(dev, err)
	}
}

func (m *Manager) notifyPairingFinished(txnID ids.PairingTransactionID, dev *device.Device, err error) {
	if m.publisher != nil {
		m.publisher.PairingFinished(txnID, dev, err)
	}
}

// registerTimerUserIfNeeded starts the shared periodic timer for dev's
// owning plugin, if that plugin requires it.
func (m *Manager) registerTimerUserIfNeeded(dev *device.Device, p plugin.Plugin) {
	if p != nil && p.RequiredHardware().Has(hwres.Timer) {
		m.bus.RegisterTimerUser(dev.ID)
	}
}

// Restore loads previously configured devices from persistence at
// startup. Restored devices are already set up; they do not go through
// setupDevice again.
func (m *Manager) Restore() error {
	devices, err := m.persistence.LoadDevices()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, dev := range devices {
		dev.SetupComplete = true
		m.configured[dev.ID] = dev
		if p, err := m.registry.Plugin(dev.PluginID); err == nil {
			m.registerTimerUserIfNeeded(dev, p)
		}
	}
	return nil
}

// Device returns a deep copy of a configured device.
func (m *Manager) Device(id ids.DeviceID) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, ok := m.configured[id]
	if !ok {
		return nil, deviceerr.Wrap(deviceerr.CategoryLookup, "Device", deviceerr.ErrDeviceNotFound)
	}
	return dev.DeepCopy(), nil
}

// ConfiguredDevices returns a deep copy of every configured device.
func (m *Manager) ConfiguredDevices() []*device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*device.Device, 0, len(m.configured))
	for _, dev := range m.configured {
		out = append(out, dev.DeepCopy())
	}
	return out
}

// SetDeviceState records the last known value of a configured, running
// device's state. It is the write side the event channel (C7) uses when
// it observes stateValueChanged.
func (m *Manager) SetDeviceState(deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dev, ok := m.configured[deviceID]
	if !ok {
		return deviceerr.Wrap(deviceerr.CategoryLookup, "SetDeviceState", deviceerr.ErrDeviceNotFound)
	}
	dev.SetState(stateTypeID, value)
	return nil
}
