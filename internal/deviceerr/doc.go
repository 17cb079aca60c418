// Package deviceerr defines the closed error taxonomy shared by every
// component of the DeviceManager control core: Lookup, Input, Setup and
// Runtime categories, plus the Async sentinel returned by operations that
// complete later via a callback rather than synchronously.
//
// Callers check specific failures with errors.Is() against the sentinel
// values, and can inspect the Category of a *DeviceError for coarser
// handling (e.g. mapping to a JSON-RPC error code in an external serving
// layer).
package deviceerr
