package deviceerr

import (
	"errors"
	"fmt"
)

// Category groups the closed taxonomy of errors the control core can
// produce. Every error returned by a public operation is, or wraps, one of
// the sentinel values below and falls into exactly one category.
type Category int

const (
	// CategoryLookup covers requests naming a plugin, vendor, device class,
	// device, action/state/event type, device descriptor, or pairing
	// transaction that does not exist.
	CategoryLookup Category = iota

	// CategoryInput covers malformed or invalid caller-supplied parameters:
	// missing required ones, or ones that fail type/range/allowed-value
	// checks.
	CategoryInput

	// CategorySetup covers failures while bringing a device through
	// discover/pair/setup, including the device class rejecting the
	// requested creation or setup path.
	CategorySetup

	// CategoryRuntime covers failures once hardware or a device is involved
	// at runtime: unavailable hardware, hardware-level failure, or a device
	// busy with another operation.
	CategoryRuntime
)

// String returns a lowercase name for the category, used in error messages.
func (c Category) String() string {
	switch c {
	case CategoryLookup:
		return "lookup"
	case CategoryInput:
		return "input"
	case CategorySetup:
		return "setup"
	case CategoryRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// DeviceError carries a Category alongside the operation name and wrapped
// sentinel so callers can both errors.Is() against the sentinel and inspect
// which category it fell into.
type DeviceError struct {
	Category Category
	Op       string
	Err      error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Category, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Wrap builds a DeviceError for the given category and operation, wrapping
// one of the sentinel errors below (or another DeviceError).
func Wrap(category Category, op string, err error) *DeviceError {
	return &DeviceError{Category: category, Op: op, Err: err}
}

// Sentinel errors. Check with errors.Is():
//
//	if errors.Is(err, deviceerr.ErrDeviceNotFound) {
//	    // handle missing device
//	}
var (
	// --- Lookup errors ---

	ErrPluginNotFound             = errors.New("deviceerr: plugin not found")
	ErrVendorNotFound             = errors.New("deviceerr: vendor not found")
	ErrDeviceNotFound             = errors.New("deviceerr: device not found")
	ErrDeviceClassNotFound        = errors.New("deviceerr: device class not found")
	ErrActionTypeNotFound         = errors.New("deviceerr: action type not found")
	ErrStateTypeNotFound          = errors.New("deviceerr: state type not found")
	ErrEventTypeNotFound          = errors.New("deviceerr: event type not found")
	ErrDeviceDescriptorNotFound   = errors.New("deviceerr: device descriptor not found")
	ErrPairingTransactionIdNotFound = errors.New("deviceerr: pairing transaction id not found")

	// --- Input errors ---

	ErrMissingParameter = errors.New("deviceerr: missing required parameter")
	ErrInvalidParameter = errors.New("deviceerr: invalid parameter")

	// --- Setup errors ---

	ErrSetupFailed               = errors.New("deviceerr: device setup failed")
	ErrDuplicateUuid             = errors.New("deviceerr: uuid already in use")
	ErrCreationMethodNotSupported = errors.New("deviceerr: device class does not support this creation method")
	ErrSetupMethodNotSupported   = errors.New("deviceerr: device class does not support this setup method")

	// --- Runtime errors ---

	ErrHardwareNotAvailable = errors.New("deviceerr: required hardware not available")
	ErrHardwareFailure      = errors.New("deviceerr: hardware failure")
	ErrDeviceInUse          = errors.New("deviceerr: device in use")

	// Async is returned in place of a concrete error when an operation has
	// been accepted by a plugin but will only complete later, via that
	// plugin's completion callback. It is not a failure.
	Async = errors.New("deviceerr: operation accepted, completes asynchronously")
)

// IsAsync reports whether err is the Async sentinel.
func IsAsync(err error) bool {
	return errors.Is(err, Async)
}
