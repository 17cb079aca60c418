package deviceerr

import (
	"errors"
	"testing"
)

func TestWrap_UnwrapsToSentinel(t *testing.T) {
	err := Wrap(CategoryLookup, "GetDevice", ErrDeviceNotFound)

	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("errors.Is(err, ErrDeviceNotFound) = false, want true")
	}
	if err.Category != CategoryLookup {
		t.Errorf("Category = %v, want CategoryLookup", err.Category)
	}
}

func TestCategory_String(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryLookup, "lookup"},
		{CategoryInput, "input"},
		{CategorySetup, "setup"},
		{CategoryRuntime, "runtime"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestIsAsync(t *testing.T) {
	if !IsAsync(Async) {
		t.Error("IsAsync(Async) = false, want true")
	}
	if IsAsync(ErrDeviceNotFound) {
		t.Error("IsAsync(ErrDeviceNotFound) = true, want false")
	}

	wrapped := Wrap(CategorySetup, "pairDevice", Async)
	if !IsAsync(wrapped) {
		t.Error("IsAsync(wrapped Async) = false, want true")
	}
}

func TestDeviceError_ErrorMessage(t *testing.T) {
	err := Wrap(CategoryInput, "executeAction", ErrMissingParameter)
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
}

func TestSentinels_DistinctByCategory(t *testing.T) {
	lookup := []error{
		ErrPluginNotFound, ErrDeviceNotFound, ErrDeviceClassNotFound,
		ErrActionTypeNotFound, ErrStateTypeNotFound, ErrEventTypeNotFound,
		ErrDeviceDescriptorNotFound, ErrPairingTransactionIdNotFound,
	}
	input := []error{ErrMissingParameter, ErrInvalidParameter}
	setup := []error{
		ErrSetupFailed, ErrDuplicateUuid, ErrCreationMethodNotSupported, ErrSetupMethodNotSupported,
	}
	runtime := []error{ErrHardwareNotAvailable, ErrHardwareFailure, ErrDeviceInUse}

	all := map[error]bool{}
	for _, group := range [][]error{lookup, input, setup, runtime} {
		for _, e := range group {
			if all[e] {
				t.Errorf("sentinel %v appears in more than one category group", e)
			}
			all[e] = true
		}
	}
}
