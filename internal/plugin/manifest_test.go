package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/homectl/devicecore/internal/ids"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest fixture: %v", err)
	}
}

func TestFileManifestSource_LoadsValidManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "demo.json", `{"name":"Demo Plugin","id":"demo","vendors":["acme"]}`)

	src := NewFileManifestSource(dir)
	src.Register("demo", func(m Manifest) (Plugin, error) {
		return &fakePlugin{id: ids.PluginID(m.ID), name: m.Name}, nil
	})

	plugins, err := src.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(plugins) != 1 || plugins[0].PluginID() != "demo" {
		t.Fatalf("plugins = %+v, want one plugin with id demo", plugins)
	}
}

func TestFileManifestSource_SkipsMissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "bad.json", `{"name":"No ID","vendors":["acme"]}`)

	src := NewFileManifestSource(dir)
	plugins, err := src.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(plugins) != 0 {
		t.Fatalf("plugins = %+v, want none (manifest missing id)", plugins)
	}
}

func TestFileManifestSource_SkipsUnregisteredConstructor(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "orphan.json", `{"name":"Orphan","id":"orphan","vendors":["acme"]}`)

	src := NewFileManifestSource(dir)
	plugins, err := src.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(plugins) != 0 {
		t.Fatalf("plugins = %+v, want none (no registered constructor)", plugins)
	}
}

func TestFileManifestSource_SkipsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "malformed.json", `{not valid json`)

	src := NewFileManifestSource(dir)
	plugins, err := src.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(plugins) != 0 {
		t.Fatalf("plugins = %+v, want none (malformed JSON)", plugins)
	}
}
