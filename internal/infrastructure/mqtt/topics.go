package mqtt

import "fmt"

// Topic prefixes for notifications mirrored outward from the DeviceManager
// control core. These topics exist for an external serving layer (out of
// scope here) to subscribe to; nothing in this repository subscribes to
// them back.
const (
	// TopicPrefixCore is the base for all core notification topics.
	TopicPrefixCore = "devicecore/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "devicecore/system"
)

// Topics provides builders for DeviceCore MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// =============================================================================
// Core Topics
// =============================================================================

// DeviceStateChanged returns the topic a device's state-change notification
// is mirrored to.
//
// Example: devicecore/core/device/light-living-main/state
func (Topics) DeviceStateChanged(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, deviceID)
}

// Event returns the topic an emitted event of the given event type is
// mirrored to.
//
// Example: devicecore/core/event/device_went_offline
func (Topics) Event(eventTypeID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventTypeID)
}

// DeviceSetupFinished returns the topic for setup-completion notifications.
//
// Example: devicecore/core/device/light-living-main/setup_finished
func (Topics) DeviceSetupFinished(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/setup_finished", TopicPrefixCore, deviceID)
}

// PairingFinished returns the topic for pairing-completion notifications.
//
// Example: devicecore/core/pairing/8f3a.../finished
func (Topics) PairingFinished(transactionID string) string {
	return fmt.Sprintf("%s/pairing/%s/finished", TopicPrefixCore, transactionID)
}

// ActionExecuted returns the topic for action completion notifications.
//
// Example: devicecore/core/action/8f3a.../executed
func (Topics) ActionExecuted(actionID string) string {
	return fmt.Sprintf("%s/action/%s/executed", TopicPrefixCore, actionID)
}

// RuleFired returns the topic for rule-evaluation notifications.
//
// Example: devicecore/core/rule/rule-sunrise-blinds/fired
func (Topics) RuleFired(ruleID string) string {
	return fmt.Sprintf("%s/rule/%s/fired", TopicPrefixCore, ruleID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: devicecore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: devicecore/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceStates returns a pattern matching all device state notifications.
//
// Pattern: devicecore/core/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefixCore)
}

// AllEvents returns a pattern matching all event notifications.
//
// Pattern: devicecore/core/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixCore)
}

// AllTopics returns a pattern matching all DeviceCore topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: devicecore/#
func (Topics) AllTopics() string {
	return "devicecore/#"
}
