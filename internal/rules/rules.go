// Package rules implements the minimal Rule Engine: a flat list of
// (triggerEventTypeId, action) pairs evaluated against incoming events in
// insertion order. It is intentionally shallow — no conditions, no
// state-delta tracking, no effect sets — by design, not by omission.
package rules

import (
	"sync"

	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
)

// Logger is the logging interface the engine uses for rule-firing
// diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// EventTypeChecker reports whether an event type ID is known to the
// catalog, so AddRule can reject a trigger that will never fire.
type EventTypeChecker interface {
	EventTypeExists(id ids.EventTypeID) bool
}

// DeviceStore looks a triggering event's device up, so a rule's optional
// DeviceFilter can be evaluated against it.
type DeviceStore interface {
	Device(id ids.DeviceID) (*device.Device, error)
}

// ActionExecutor dispatches a rule's action once its trigger fires.
// internal/action.Dispatcher implements this.
type ActionExecutor interface {
	ExecuteAction(act *device.Action) error
}

// DeviceFilter narrows a rule to only fire for triggering devices matching
// it. A nil filter, or one with every field empty, matches every device.
// This is an additive refinement on top of spec.md's {triggerEventTypeId,
// action} Rule shape, not a replacement for it.
type DeviceFilter struct {
	DeviceClassIDs []ids.DeviceClassID
	PluginIDs      []ids.PluginID
}

// Matches reports whether dev satisfies the filter.
func (f *DeviceFilter) Matches(dev *device.Device) bool {
	if f == nil {
		return true
	}
	if len(f.DeviceClassIDs) > 0 && !containsDeviceClass(f.DeviceClassIDs, dev.DeviceClassID) {
		return false
	}
	if len(f.PluginIDs) > 0 && !containsPlugin(f.PluginIDs, dev.PluginID) {
		return false
	}
	return true
}

func containsDeviceClass(list []ids.DeviceClassID, id ids.DeviceClassID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func containsPlugin(list []ids.PluginID, id ids.PluginID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// Rule is a single trigger/action pair, matching spec.md's Rule type
// exactly, plus the optional additive Filter.
type Rule struct {
	TriggerEventTypeID ids.EventTypeID
	Action             device.Action
	Filter             *DeviceFilter
}

// Engine holds the flat rule list and evaluates it against published
// events.
type Engine struct {
	mu sync.Mutex

	checker  EventTypeChecker
	devices  DeviceStore
	executor ActionExecutor
	logger   Logger

	rules []Rule
}

// New returns an empty Engine. checker validates AddRule's trigger against
// the catalog's known event types; devices and executor are used when
// EventPublished fires matched rules.
func New(checker EventTypeChecker, devices DeviceStore, executor ActionExecutor) *Engine {
	return &Engine{
		checker:  checker,
		devices:  devices,
		executor: executor,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger used for rule-firing diagnostics.
func (e *Engine) SetLogger(logger Logger) { e.logger = logger }

// AddRule appends a rule if its trigger names a known event type.
// Insertion order is evaluation order; there is no priority field.
func (e *Engine) AddRule(triggerEventTypeID ids.EventTypeID, act device.Action, filter *DeviceFilter) error {
	if !e.checker.EventTypeExists(triggerEventTypeID) {
		return deviceerr.Wrap(deviceerr.CategoryLookup, "AddRule",
			deviceerr.ErrEventTypeNotFound)
	}

	e.mu.Lock()
	e.rules = append(e.rules, Rule{TriggerEventTypeID: triggerEventTypeID, Action: act, Filter: filter})
	e.mu.Unlock()
	return nil
}

// EvaluateTrigger returns the actions of every rule whose trigger matches
// eventTypeID, in insertion order. It does not apply any DeviceFilter — use
// EventPublished for filtered, device-aware firing.
func (e *Engine) EvaluateTrigger(eventTypeID ids.EventTypeID) []device.Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	var actions []device.Action
	for _, r := range e.rules {
		if r.TriggerEventTypeID == eventTypeID {
			actions = append(actions, r.Action)
		}
	}
	return actions
}

// EventPublished implements events.Listener: every published event is
// evaluated against the rule list, and each matched rule (subject to its
// optional DeviceFilter against the triggering device) has its action
// dispatched through the executor.
func (e *Engine) EventPublished(ev device.Event) {
	e.mu.Lock()
	matched := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		if r.TriggerEventTypeID == ev.EventTypeID {
			matched = append(matched, r)
		}
	}
	e.mu.Unlock()

	if len(matched) == 0 {
		return
	}

	var triggeringDevice *device.Device
	for _, r := range matched {
		if r.Filter != nil {
			if triggeringDevice == nil {
				dev, err := e.devices.Device(ev.DeviceID)
				if err != nil {
					e.logger.Warn("rule filter lookup failed, skipping filtered rule", "device_id", ev.DeviceID, "error", err)
					continue
				}
				triggeringDevice = dev
			}
			if !r.Filter.Matches(triggeringDevice) {
				continue
			}
		}

		act := r.Action
		if err := e.executor.ExecuteAction(&act); err != nil && !deviceerr.IsAsync(err) {
			e.logger.Warn("rule action execution failed", "trigger_event_type_id", ev.EventTypeID, "error", err)
		}
	}
}
