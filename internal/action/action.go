// Package action implements the Action Dispatcher: it resolves an action
// against its owning device and action type, validates its params, and
// hands it to the device's plugin. Completions for actions the plugin
// reports Async may arrive later through the dispatcher's ActionSink side,
// which devicemgr forwards plugin callbacks into.
package action

import (
	"fmt"
	"sync"

	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
	"github.com/homectl/devicecore/internal/plugin"
)

// Logger is the logging interface the dispatcher uses for dropped-callback
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

// DeviceStore is the subset of devicemgr.Manager the dispatcher needs to
// resolve an action's target device. Defined here rather than imported
// from devicemgr so action has no compile-time dependency on it; devicemgr
// satisfies this interface structurally.
type DeviceStore interface {
	Device(id ids.DeviceID) (*device.Device, error)
}

// CompletionSink receives an action's terminal outcome once it is known.
// ExecuteAction's caller or an event-channel component may implement this
// to learn about async completions; it is optional.
type CompletionSink interface {
	ActionCompleted(actionID ids.ActionID, deviceID ids.DeviceID, err error)
}

// inflight records an action accepted with deviceerr.Async, kept so its
// later ActionExecutionFinished callback can be correlated back to the
// device it targeted.
type inflight struct {
	deviceID ids.DeviceID
}

// Dispatcher is the Action Dispatcher. It is stateless beyond the set of
// in-flight async actions it tracks for correlation.
type Dispatcher struct {
	mu sync.Mutex

	catalog  *catalog.Catalog
	devices  DeviceStore
	registry *plugin.Registry

	validator paramtype.Validator
	logger    Logger
	sink      CompletionSink

	inflight map[ids.ActionID]inflight
}

// New returns a Dispatcher resolving devices through devices, action types
// through cat, and dispatching to plugins through registry.
func New(cat *catalog.Catalog, devices DeviceStore, registry *plugin.Registry) *Dispatcher {
	return &Dispatcher{
		catalog:  cat,
		devices:  devices,
		registry: registry,
		logger:   noopLogger{},
		inflight: make(map[ids.ActionID]inflight),
	}
}

// SetLogger sets the logger used for dropped-callback diagnostics.
func (d *Dispatcher) SetLogger(logger Logger) { d.logger = logger }

// SetCompletionSink installs the optional receiver of action completions.
func (d *Dispatcher) SetCompletionSink(sink CompletionSink) { d.sink = sink }

// ExecuteAction resolves act against its device and action type, validates
// its params with requireAll=true (writing the filled list back into act),
// and dispatches to the owning plugin. A nil return means the plugin
// completed synchronously; deviceerr.Async means a later
// ActionExecutionFinished callback carries the terminal outcome.
func (d *Dispatcher) ExecuteAction(act *device.Action) error {
	dev, err := d.devices.Device(act.DeviceID)
	if err != nil {
		return err
	}

	class, err := d.catalog.DeviceClass(dev.DeviceClassID)
	if err != nil {
		return err
	}

	actionType, ok := class.ActionType(act.ActionTypeID)
	if !ok {
		return deviceerr.Wrap(deviceerr.CategoryLookup, "ExecuteAction", deviceerr.ErrActionTypeNotFound)
	}

	filled, err := d.validator.VerifyParams(actionType.ParamTypes, act.Params, true)
	if err != nil {
		return err
	}
	act.Params = filled

	if act.ID == "" {
		act.ID = ids.NewActionID()
	}

	p, err := d.registry.Plugin(dev.PluginID)
	if err != nil {
		return err
	}

	err = p.ExecuteAction(dev, *act)
	if deviceerr.IsAsync(err) {
		d.mu.Lock()
		d.inflight[act.ID] = inflight{deviceID: dev.ID}
		d.mu.Unlock()
	}
	return err
}

// ActionExecutionFinished resolves a previously Async action. It implements
// devicemgr.ActionSink. A callback for an action not held in-flight is
// unsolicited and is logged and dropped.
func (d *Dispatcher) ActionExecutionFinished(actionID ids.ActionID, status plugin.SetupStatus) {
	d.mu.Lock()
	pending, ok := d.inflight[actionID]
	if ok {
		delete(d.inflight, actionID)
	}
	d.mu.Unlock()

	if !ok {
		d.logger.Warn("dropped actionExecutionFinished for unknown action", "action_id", actionID)
		return
	}

	var err error
	switch status {
	case plugin.StatusSuccess:
		err = nil
	case plugin.StatusFailure:
		err = deviceerr.Wrap(deviceerr.CategoryRuntime, "ActionExecutionFinished", deviceerr.ErrHardwareFailure)
	default:
		err = deviceerr.Wrap(deviceerr.CategoryRuntime, "ActionExecutionFinished",
			fmt.Errorf("%w: plugin returned non-terminal status for a completion callback", deviceerr.ErrHardwareFailure))
	}

	if d.sink != nil {
		d.sink.ActionCompleted(actionID, pending.deviceID, err)
	}
}
