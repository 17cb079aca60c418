// Package plugin defines the device-plugin contract (Plugin), the
// registry that holds loaded plugins for the daemon's lifetime and
// mediates the callbacks they originate (Registry, Sink), and the manifest
// loading mechanism that stands in for the out-of-scope dynamic loader
// (Source, FileManifestSource).
package plugin
