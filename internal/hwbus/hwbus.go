// Package hwbus implements the Hardware Resource Bus: the shared sources
// (sub-GHz radio, UPnP discovery, a periodic timer) that fan events out to
// every plugin that declared a need for them.
package hwbus

import (
	"sync"
	"time"

	"github.com/homectl/devicecore/internal/hwres"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/plugin"
)

// Logger is the logging interface the bus uses for fan-out diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// SourceStatus is the last-observed activity for one hardware source, used
// by Status for operational visibility.
type SourceStatus struct {
	LastFired   time.Time
	FanOutCount int
}

// Status is a snapshot of the bus's hardware sources.
type Status struct {
	RadioEnabled bool
	UpnpEnabled  bool
	TimerRunning bool
	TimerUsers   int
	Sources      map[hwres.Resource]SourceStatus
}

// Bus fans hardware events out to registered plugins. Fan-out order always
// follows the plugin registry's registration order, per §4.3.
type Bus struct {
	mu sync.Mutex

	registry *plugin.Registry
	logger   Logger

	radioEnabled bool
	upnpEnabled  bool

	timerInterval time.Duration
	timerUsers    map[ids.DeviceID]bool
	timerStop     chan struct{}
	timerRunning  bool

	sources map[hwres.Resource]SourceStatus
}

// New returns a Bus fanning out through registry, with the periodic timer
// set to fire every timerInterval once a Timer-requiring device exists.
func New(registry *plugin.Registry, timerInterval time.Duration, radioEnabled, upnpEnabled bool) *Bus {
	return &Bus{
		registry:      registry,
		logger:        noopLogger{},
		radioEnabled:  radioEnabled,
		upnpEnabled:   upnpEnabled,
		timerInterval: timerInterval,
		timerUsers:    make(map[ids.DeviceID]bool),
		sources:       make(map[hwres.Resource]SourceStatus),
	}
}

// SetLogger sets the logger used for fan-out diagnostics.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// fanOut calls fn on every plugin that either requires resource or is
// currently discovering, in registration order, and records source status.
func (b *Bus) fanOut(resource hwres.Resource, fn func(plugin.Plugin)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for _, p := range b.registry.Plugins() {
		if !p.RequiredHardware().Has(resource) && !b.registry.IsDiscovering(p.PluginID()) {
			continue
		}
		fn(p)
		count++
	}

	b.sources[resource] = SourceStatus{LastFired: time.Now(), FanOutCount: count}
	b.logger.Debug("hardware bus fan-out", "resource", resource.String(), "plugin_count", count)
}

// DeliverRadioData fans raw radio data out to every plugin requiring the
// given radio band (Radio433 or Radio868).
func (b *Bus) DeliverRadioData(band hwres.Resource, raw []byte) {
	if !b.radioEnabled {
		return
	}
	b.fanOut(band, func(p plugin.Plugin) { p.RadioData(raw) })
}

// DeliverUpnpDiscoveryFinished fans a finished UPnP discovery result out to
// every plugin requiring UpnpDiscovery.
func (b *Bus) DeliverUpnpDiscoveryFinished(results [][]byte) {
	if !b.upnpEnabled {
		return
	}
	b.fanOut(hwres.UpnpDiscovery, func(p plugin.Plugin) { p.UpnpDiscoveryFinished(results) })
}

// DeliverUpnpNotifyReceived fans a UPnP NOTIFY payload out to every plugin
// requiring UpnpDiscovery.
func (b *Bus) DeliverUpnpNotifyReceived(data []byte) {
	if !b.upnpEnabled {
		return
	}
	b.fanOut(hwres.UpnpDiscovery, func(p plugin.Plugin) { p.UpnpNotifyReceived(data) })
}

// RegisterTimerUser marks deviceID as requiring the periodic timer. The
// timer starts if this is the first such device.
func (b *Bus) RegisterTimerUser(deviceID ids.DeviceID) {
	b.mu.Lock()
	alreadyRunning := len(b.timerUsers) > 0
	b.timerUsers[deviceID] = true
	shouldStart := !alreadyRunning && len(b.timerUsers) > 0
	b.mu.Unlock()

	if shouldStart {
		b.startTimer()
	}
}

// UnregisterTimerUser removes deviceID from the timer-user set. The timer
// stops if deviceID was the last one.
func (b *Bus) UnregisterTimerUser(deviceID ids.DeviceID) {
	b.mu.Lock()
	delete(b.timerUsers, deviceID)
	shouldStop := len(b.timerUsers) == 0
	b.mu.Unlock()

	if shouldStop {
		b.stopTimer()
	}
}

func (b *Bus) startTimer() {
	b.mu.Lock()
	if b.timerRunning {
		b.mu.Unlock()
		return
	}
	b.timerRunning = true
	stop := make(chan struct{})
	b.timerStop = stop
	b.mu.Unlock()

	b.logger.Info("hardware timer started", "interval", b.timerInterval)
	go func() {
		ticker := time.NewTicker(b.timerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.fanOut(hwres.Timer, func(p plugin.Plugin) { p.GuhTimer() })
			case <-stop:
				return
			}
		}
	}()
}

func (b *Bus) stopTimer() {
	b.mu.Lock()
	if !b.timerRunning {
		b.mu.Unlock()
		return
	}
	b.timerRunning = false
	stop := b.timerStop
	b.timerStop = nil
	b.mu.Unlock()

	close(stop)
	b.logger.Info("hardware timer stopped")
}

// Status returns a snapshot of the bus's sources for operational
// visibility.
func (b *Bus) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	sources := make(map[hwres.Resource]SourceStatus, len(b.sources))
	for k, v := range b.sources {
		sources[k] = v
	}

	return Status{
		RadioEnabled: b.radioEnabled,
		UpnpEnabled:  b.upnpEnabled,
		TimerRunning: b.timerRunning,
		TimerUsers:   len(b.timerUsers),
		Sources:      sources,
	}
}
