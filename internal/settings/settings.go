// Package settings implements the Persistence Adapter: it durably stores
// each configured device's name, class, owning plugin and setup params
// under the grouped settings keys DeviceConfig/<deviceId>/... spec.md §6
// describes, and loads them back into device.Device records at startup.
// Storage is SQLite via infrastructure/database, keyed on the group path
// rather than a normalized per-field schema, so a plugin's arbitrary param
// set never needs a column added for it.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/infrastructure/database"
	"github.com/homectl/devicecore/internal/paramtype"
)

const (
	deviceNameKey  = "devicename"
	deviceClassKey = "deviceClassId"
	pluginIDKey    = "pluginid"
	parentIDKey    = "parentId"
	setupDoneKey   = "setupComplete"
	paramGroup     = "Params"
)

// Store is a SQLite-backed devicemgr.PersistenceAdapter. It stores each
// device's settings as a flat group of key/value rows rather than a
// dedicated devices table, matching the grouped-key scheme spec.md §6
// defines for persisted settings.
type Store struct {
	db *database.DB
}

// New returns a Store writing through db. The caller is responsible for
// having run migrations that create the settings table.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// SaveDevice implements devicemgr.PersistenceAdapter. It replaces every
// settings row under the device's group with the device's current fields
// and params, in a single transaction.
func (s *Store) SaveDevice(dev *device.Device) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return deviceerr.Wrap(deviceerr.CategoryRuntime, "SaveDevice", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	group := deviceGroup(dev.ID)
	if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE group_path = ? OR group_path LIKE ?", group, group+"/%"); err != nil {
		return deviceerr.Wrap(deviceerr.CategoryRuntime, "SaveDevice", fmt.Errorf("clearing existing rows: %w", err))
	}

	rows := map[string]string{
		deviceNameKey:  dev.Name,
		deviceClassKey: string(dev.DeviceClassID),
		pluginIDKey:    string(dev.PluginID),
		setupDoneKey:   fmt.Sprintf("%t", dev.SetupComplete),
	}
	if dev.ParentID != nil {
		rows[parentIDKey] = string(*dev.ParentID)
	}
	for key, value := range rows {
		if err := putLocked(ctx, tx, group, key, value); err != nil {
			return deviceerr.Wrap(deviceerr.CategoryRuntime, "SaveDevice", err)
		}
	}

	paramsGroup := group + "/" + paramGroup
	for _, p := range dev.Params {
		encoded, err := json.Marshal(p.Value)
		if err != nil {
			return deviceerr.Wrap(deviceerr.CategoryRuntime, "SaveDevice", fmt.Errorf("encoding param %q: %w", p.Name, err))
		}
		if err := putLocked(ctx, tx, paramsGroup, p.Name, string(encoded)); err != nil {
			return deviceerr.Wrap(deviceerr.CategoryRuntime, "SaveDevice", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return deviceerr.Wrap(deviceerr.CategoryRuntime, "SaveDevice", err)
	}
	return nil
}

// DeleteDevice implements devicemgr.PersistenceAdapter. It removes every
// settings row under the device's group, including its Params subgroup.
func (s *Store) DeleteDevice(deviceID ids.DeviceID) error {
	ctx := context.Background()
	group := deviceGroup(deviceID)
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE group_path = ? OR group_path LIKE ?", group, group+"/%")
	if err != nil {
		return deviceerr.Wrap(deviceerr.CategoryRuntime, "DeleteDevice", err)
	}
	return nil
}

// LoadDevices implements devicemgr.PersistenceAdapter. It reconstructs
// every device.Device from the DeviceConfig/<deviceId>/... rows persisted
// by SaveDevice.
func (s *Store) LoadDevices() ([]*device.Device, error) {
	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_path, key, value
		FROM settings
		WHERE group_path LIKE 'DeviceConfig/%'
		ORDER BY group_path`)
	if err != nil {
		return nil, deviceerr.Wrap(deviceerr.CategoryRuntime, "LoadDevices", err)
	}
	defer rows.Close()

	type raw struct {
		fields map[string]string
		params paramtype.ParamList
	}
	byDevice := make(map[ids.DeviceID]*raw)

	for rows.Next() {
		var groupPath, key, value string
		if err := rows.Scan(&groupPath, &key, &value); err != nil {
			return nil, deviceerr.Wrap(deviceerr.CategoryRuntime, "LoadDevices", fmt.Errorf("scanning row: %w", err))
		}

		deviceID, subgroup, ok := parseDeviceGroup(groupPath)
		if !ok {
			continue
		}
		r, ok := byDevice[deviceID]
		if !ok {
			r = &raw{fields: make(map[string]string)}
			byDevice[deviceID] = r
		}

		if subgroup == paramGroup {
			var decoded interface{}
			if err := json.Unmarshal([]byte(value), &decoded); err != nil {
				return nil, deviceerr.Wrap(deviceerr.CategoryRuntime, "LoadDevices", fmt.Errorf("decoding param %q for device %q: %w", key, deviceID, err))
			}
			r.params = append(r.params, paramtype.Param{Name: key, Value: decoded})
			continue
		}
		r.fields[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, deviceerr.Wrap(deviceerr.CategoryRuntime, "LoadDevices", fmt.Errorf("iterating rows: %w", err))
	}

	deviceIDs := make([]ids.DeviceID, 0, len(byDevice))
	for id := range byDevice {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Slice(deviceIDs, func(i, j int) bool { return deviceIDs[i] < deviceIDs[j] })

	devices := make([]*device.Device, 0, len(byDevice))
	for _, id := range deviceIDs {
		r := byDevice[id]
		dev := &device.Device{
			ID:            id,
			Name:          r.fields[deviceNameKey],
			DeviceClassID: ids.DeviceClassID(r.fields[deviceClassKey]),
			PluginID:      ids.PluginID(r.fields[pluginIDKey]),
			Params:        r.params,
			SetupComplete: r.fields[setupDoneKey] == "true",
		}
		if parent, ok := r.fields[parentIDKey]; ok && parent != "" {
			parentID := ids.DeviceID(parent)
			dev.ParentID = &parentID
		}
		devices = append(devices, dev)
	}

	return devices, nil
}

// PluginParam returns a single plugin configuration value stored under
// PluginConfig/<pluginId>/<paramName>, and whether it was found.
func (s *Store) PluginParam(pluginID ids.PluginID, paramName string) (interface{}, bool, error) {
	group := "PluginConfig/" + string(pluginID)
	value, ok, err := get(context.Background(), s.db, group, paramName)
	if err != nil || !ok {
		return nil, ok, err
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return nil, false, deviceerr.Wrap(deviceerr.CategoryRuntime, "PluginParam", fmt.Errorf("decoding %q: %w", paramName, err))
	}
	return decoded, true, nil
}

// SetPluginParam persists a single plugin configuration value under
// PluginConfig/<pluginId>/<paramName>.
func (s *Store) SetPluginParam(pluginID ids.PluginID, paramName string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return deviceerr.Wrap(deviceerr.CategoryRuntime, "SetPluginParam", fmt.Errorf("encoding %q: %w", paramName, err))
	}
	group := "PluginConfig/" + string(pluginID)
	if err := putLocked(context.Background(), s.db.DB, group, paramName, string(encoded)); err != nil {
		return deviceerr.Wrap(deviceerr.CategoryRuntime, "SetPluginParam", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putLocked(ctx context.Context, x execer, group, key, value string) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO settings (group_path, key, value) VALUES (?, ?, ?)
		ON CONFLICT(group_path, key) DO UPDATE SET value = excluded.value`,
		group, key, value)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", group, key, err)
	}
	return nil
}

func get(ctx context.Context, db *database.DB, group, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, "SELECT value FROM settings WHERE group_path = ? AND key = ?", group, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s/%s: %w", group, key, err)
	}
	return value, true, nil
}

func deviceGroup(id ids.DeviceID) string {
	return "DeviceConfig/" + string(id)
}

// parseDeviceGroup splits a "DeviceConfig/<deviceId>[/<subgroup>]" group
// path into its device ID and optional subgroup ("" for the device's own
// fields, "Params" for its params subgroup).
func parseDeviceGroup(groupPath string) (ids.DeviceID, string, bool) {
	const prefix = "DeviceConfig/"
	if !strings.HasPrefix(groupPath, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(groupPath, prefix)
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return ids.DeviceID(rest[:idx]), rest[idx+1:], true
	}
	return ids.DeviceID(rest), "", true
}
