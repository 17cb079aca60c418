// DeviceCore - the device control core of a home automation daemon.
//
// This is the main entry point. DeviceCore owns the device catalog, the
// plugin registry, the shared hardware-resource bus, the per-device
// lifecycle state machine, the action dispatcher, the event and
// state-change channel, and the rule engine, and persists configured
// devices to SQLite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/homectl/devicecore/migrations"

	"github.com/homectl/devicecore/internal/action"
	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/devicemgr"
	"github.com/homectl/devicecore/internal/events"
	"github.com/homectl/devicecore/internal/hwbus"
	"github.com/homectl/devicecore/internal/infrastructure/config"
	"github.com/homectl/devicecore/internal/infrastructure/database"
	"github.com/homectl/devicecore/internal/infrastructure/influxdb"
	"github.com/homectl/devicecore/internal/infrastructure/logging"
	"github.com/homectl/devicecore/internal/infrastructure/mqtt"
	"github.com/homectl/devicecore/internal/plugin"
	"github.com/homectl/devicecore/internal/rules"
	"github.com/homectl/devicecore/internal/settings"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting devicecore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	applied, _, statusErr := db.MigrationStatus(ctx)
	if statusErr != nil {
		return fmt.Errorf("checking migration status: %w", statusErr)
	}
	log.Info("database migrations complete", "applied_count", len(applied))

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "org", cfg.InfluxDB.Org, "bucket", cfg.InfluxDB.Bucket)
		influxClient.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
	} else {
		log.Info("InfluxDB disabled")
	}

	core, err := wireCore(cfg, db, mqttClient, influxClient, log)
	if err != nil {
		return fmt.Errorf("wiring device core: %w", err)
	}

	if err := core.manager.Restore(); err != nil {
		return fmt.Errorf("restoring configured devices: %w", err)
	}
	log.Info("configured devices restored", "count", len(core.manager.ConfiguredDevices()))

	busStatus := core.bus.Status()
	log.Info("hardware bus status",
		"radio_enabled", busStatus.RadioEnabled,
		"upnp_enabled", busStatus.UpnpEnabled,
		"timer_running", busStatus.TimerRunning,
		"timer_users", busStatus.TimerUsers,
	)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("devicecore stopped")
	return nil
}

// deviceCore holds the wired-up component graph so run can reach the
// pieces it needs after startup (the lifecycle manager, for the
// post-restore device count log line, and the hardware bus, for its status
// log line).
type deviceCore struct {
	catalog    *catalog.Catalog
	registry   *plugin.Registry
	bus        *hwbus.Bus
	manager    *devicemgr.Manager
	dispatcher *action.Dispatcher
	channel    *events.Channel
	rules      *rules.Engine
	store      *settings.Store
}

// wireCore assembles the catalog, plugin registry, hardware bus, lifecycle
// manager, action dispatcher, event channel, rule engine and persistence
// adapter, and connects them to each other and to the process-wide
// infrastructure clients.
func wireCore(cfg *config.Config, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*deviceCore, error) {
	cat := catalog.New()

	registry := plugin.New()
	registry.SetLogger(log)

	manifests := plugin.NewFileManifestSource(cfg.Catalog.ManifestDir)
	manifests.SetLogger(log)
	registerPluginConstructors(manifests)

	plugins, err := manifests.Load()
	if err != nil {
		return nil, fmt.Errorf("loading plugin manifests: %w", err)
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("registering plugin %q: %w", p.PluginID(), err)
		}
		for _, v := range p.SupportedVendors() {
			cat.RegisterVendor(v)
		}
		for _, class := range p.SupportedDevices() {
			if err := cat.RegisterDeviceClass(class); err != nil {
				return nil, fmt.Errorf("registering device class from plugin %q: %w", p.PluginID(), err)
			}
		}
	}
	log.Info("plugins loaded", "count", len(plugins))

	bus := hwbus.New(registry, time.Duration(cfg.HardwareBus.TimerInterval), cfg.HardwareBus.RadioEnabled, cfg.HardwareBus.UpnpEnabled)
	bus.SetLogger(log)

	store := settings.New(db)

	manager := devicemgr.New(cat, registry, bus, store)
	manager.SetLogger(log)

	dispatcher := action.New(cat, manager, registry)
	dispatcher.SetLogger(log)

	channel := events.New(manager)
	channel.SetLogger(log)
	channel.SetMQTTPublisher(mqttClient)
	if influxClient != nil {
		channel.SetStateHistorySink(influxClient)
	}
	dispatcher.SetCompletionSink(channel)

	ruleEngine := rules.New(cat, manager, dispatcher)
	ruleEngine.SetLogger(log)
	channel.SetListener(ruleEngine)

	manager.SetPublisher(channel)
	manager.SetActionSink(dispatcher)
	manager.SetEventSink(channel)
	registry.SetSink(manager)

	return &deviceCore{
		catalog:    cat,
		registry:   registry,
		bus:        bus,
		manager:    manager,
		dispatcher: dispatcher,
		channel:    channel,
		rules:      ruleEngine,
		store:      store,
	}, nil
}

// registerPluginConstructors associates every built-in plugin's
// constructor with the plugin ID its manifest declares. Real hardware
// bindings (KNX, DALI, Modbus, radio, UPnP) register here; the control
// core has none of its own.
func registerPluginConstructors(src *plugin.FileManifestSource) {
	_ = src // no built-in plugin constructors yet; hardware bindings register themselves here
}

// getConfigPath returns the configuration file path.
// Uses DEVICECORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DEVICECORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
