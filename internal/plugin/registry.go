package plugin

import (
	"fmt"
	"sync"

	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/ids"
)

// Logger is the logging interface the registry uses to report dropped
// callbacks and registration events.
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

// Registry holds every loaded plugin for the daemon's lifetime, in
// registration order, and mediates the Sink callbacks plugins originate:
// it enforces that terminal-outcome callbacks never carry StatusAsync
// (which would mean a plugin reporting "I'll tell you later" about
// something it is telling us about right now) and forwards everything
// else to the Sink the manager installed at startup.
//
// Registration order is the fan-out order the hardware bus relies on for
// deterministic delivery.
type Registry struct {
	mu      sync.RWMutex
	order   []ids.PluginID
	plugins map[ids.PluginID]Plugin

	discovering map[ids.PluginID]bool

	sink   Sink
	logger Logger
}

// New returns an empty Registry. SetSink must be called before any plugin
// callback can be delivered; until then, callbacks are logged and dropped.
func New() *Registry {
	return &Registry{
		plugins:     make(map[ids.PluginID]Plugin),
		discovering: make(map[ids.PluginID]bool),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger used for dropped-callback and registration
// diagnostics.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetSink installs the receiver of plugin-originated signals.
func (r *Registry) SetSink(sink Sink) {
	r.sink = sink
}

// Register adds a plugin to the registry. Registration order is preserved
// for fan-out; re-registering an already-known plugin ID fails.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.PluginID()
	if _, exists := r.plugins[id]; exists {
		return deviceerr.Wrap(deviceerr.CategorySetup, "Register", fmt.Errorf("%w: plugin %q already registered", deviceerr.ErrDuplicateUuid, id))
	}

	r.plugins[id] = p
	r.order = append(r.order, id)
	r.logger.Info("plugin registered", "plugin_id", id, "plugin_name", p.PluginName())
	return nil
}

// Plugin looks up a plugin by ID.
func (r *Registry) Plugin(id ids.PluginID) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	if !ok {
		return nil, deviceerr.Wrap(deviceerr.CategoryLookup, "Plugin", deviceerr.ErrPluginNotFound)
	}
	return p, nil
}

// Plugins returns every registered plugin in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plugins[id])
	}
	return out
}

// MarkDiscovering records that pluginID has an in-flight discovery
// operation, so the hardware bus fans events out to it even though no
// device of its classes is configured yet.
func (r *Registry) MarkDiscovering(pluginID ids.PluginID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovering[pluginID] = true
}

// ClearDiscovering ends pluginID's participation in discovery-driven
// hardware fan-out.
func (r *Registry) ClearDiscovering(pluginID ids.PluginID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.discovering, pluginID)
}

// IsDiscovering reports whether pluginID currently has an in-flight
// discovery operation.
func (r *Registry) IsDiscovering(pluginID ids.PluginID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.discovering[pluginID]
}

// --- Sink mediation: plugins call these, the registry validates and
// forwards to the installed Sink. ---

func (r *Registry) forward(name string, pluginID ids.PluginID, fn func(Sink)) {
	if r.sink == nil {
		r.logger.Warn("dropped plugin callback: no sink installed", "callback", name, "plugin_id", pluginID)
		return
	}
	fn(r.sink)
}

// DevicesDiscovered forwards a discovery result. Called by a plugin after
// DiscoverDevices returned deviceerr.Async.
func (r *Registry) DevicesDiscovered(pluginID ids.PluginID, classID ids.DeviceClassID, descriptors []device.Descriptor) {
	r.forward("DevicesDiscovered", pluginID, func(s Sink) { s.DevicesDiscovered(pluginID, classID, descriptors) })
}

// DeviceSetupFinished forwards a setup completion. status must be terminal
// (Success or Failure); StatusAsync here would mean the plugin reporting
// "ask me later" about something it is reporting right now, which is
// logged and dropped rather than forwarded.
func (r *Registry) DeviceSetupFinished(pluginID ids.PluginID, deviceID ids.DeviceID, status SetupStatus) {
	if status == StatusAsync {
		r.logger.Warn("dropped deviceSetupFinished with non-terminal status", "plugin_id", pluginID, "device_id", deviceID)
		return
	}
	r.forward("DeviceSetupFinished", pluginID, func(s Sink) { s.DeviceSetupFinished(pluginID, deviceID, status) })
}

// ActionExecutionFinished forwards an action completion. See
// DeviceSetupFinished for the terminal-status requirement.
func (r *Registry) ActionExecutionFinished(pluginID ids.PluginID, actionID ids.ActionID, status SetupStatus) {
	if status == StatusAsync {
		r.logger.Warn("dropped actionExecutionFinished with non-terminal status", "plugin_id", pluginID, "action_id", actionID)
		return
	}
	r.forward("ActionExecutionFinished", pluginID, func(s Sink) { s.ActionExecutionFinished(pluginID, actionID, status) })
}

// PairingFinished forwards a pairing completion. See DeviceSetupFinished
// for the terminal-status requirement.
func (r *Registry) PairingFinished(pluginID ids.PluginID, txnID ids.PairingTransactionID, status SetupStatus) {
	if status == StatusAsync {
		r.logger.Warn("dropped pairingFinished with non-terminal status", "plugin_id", pluginID, "txn_id", txnID)
		return
	}
	r.forward("PairingFinished", pluginID, func(s Sink) { s.PairingFinished(pluginID, txnID, status) })
}

// AutoDevicesAppeared forwards a plugin's assertion that devices should be
// created without user consent.
func (r *Registry) AutoDevicesAppeared(pluginID ids.PluginID, classID ids.DeviceClassID, descriptors []device.Descriptor) {
	r.forward("AutoDevicesAppeared", pluginID, func(s Sink) { s.AutoDevicesAppeared(pluginID, classID, descriptors) })
}

// EmitEvent forwards a plugin-originated event verbatim.
func (r *Registry) EmitEvent(pluginID ids.PluginID, event device.Event) {
	r.forward("EmitEvent", pluginID, func(s Sink) { s.EmitEvent(pluginID, event) })
}

// StateValueChanged forwards a device state update.
func (r *Registry) StateValueChanged(pluginID ids.PluginID, deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) {
	r.forward("StateValueChanged", pluginID, func(s Sink) { s.StateValueChanged(pluginID, deviceID, stateTypeID, value) })
}
