package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
)

// Manifest is the JSON metadata file every plugin ships alongside its
// binary (or, in this process-model, alongside its registered
// constructor). name, id and vendors are required; a manifest lacking any
// of them is refused at load.
type Manifest struct {
	Name    string   `json:"name"`
	ID      string   `json:"id"`
	Vendors []string `json:"vendors"`
}

// validate checks the manifest carries its required fields.
func (m Manifest) validate() error {
	if m.Name == "" || m.ID == "" || len(m.Vendors) == 0 {
		return deviceerr.Wrap(deviceerr.CategorySetup, "Manifest.validate",
			fmt.Errorf("%w: manifest missing required name/id/vendors field", deviceerr.ErrSetupFailed))
	}
	return nil
}

// Constructor builds a Plugin instance for the plugin described by
// manifest. Registered per plugin ID since this repository does not load
// arbitrary code (.so/subprocess) — that mechanism is out of scope; the
// constructor is the idiomatic Go substitute.
type Constructor func(manifest Manifest) (Plugin, error)

// Source produces a sequence of plugin instances with metadata. This is
// the abstraction the actual dynamic loader sits behind.
type Source interface {
	Load() ([]Plugin, error)
}

// FileManifestSource reads *.json manifest files from a directory and
// builds a Plugin for each via the Constructor registered for that
// manifest's id. Manifests naming an id with no registered constructor, or
// failing validation, are logged and skipped rather than aborting the
// whole load.
type FileManifestSource struct {
	dir          string
	constructors map[ids.PluginID]Constructor
	logger       Logger
}

// NewFileManifestSource returns a Source reading manifests from dir.
func NewFileManifestSource(dir string) *FileManifestSource {
	return &FileManifestSource{
		dir:          dir,
		constructors: make(map[ids.PluginID]Constructor),
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger used to report skipped manifests.
func (s *FileManifestSource) SetLogger(logger Logger) {
	s.logger = logger
}

// Register associates a Constructor with the plugin id its manifest
// declares.
func (s *FileManifestSource) Register(pluginID ids.PluginID, ctor Constructor) {
	s.constructors[pluginID] = ctor
}

// Load reads every *.json file in the manifest directory and constructs a
// Plugin for each one that validates and has a registered constructor.
func (s *FileManifestSource) Load() ([]Plugin, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, deviceerr.Wrap(deviceerr.CategorySetup, "Load", fmt.Errorf("reading manifest dir %q: %w", s.dir, err))
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable plugin manifest", "path", path, "error", err)
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(raw, &manifest); err != nil {
			s.logger.Warn("skipping malformed plugin manifest", "path", path, "error", err)
			continue
		}
		if err := manifest.validate(); err != nil {
			s.logger.Warn("skipping invalid plugin manifest", "path", path, "error", err)
			continue
		}

		pluginID := ids.PluginID(manifest.ID)
		ctor, ok := s.constructors[pluginID]
		if !ok {
			s.logger.Warn("skipping manifest with no registered constructor", "path", path, "plugin_id", pluginID)
			continue
		}

		p, err := ctor(manifest)
		if err != nil {
			s.logger.Warn("plugin constructor failed", "path", path, "plugin_id", pluginID, "error", err)
			continue
		}
		plugins = append(plugins, p)
	}

	return plugins, nil
}
