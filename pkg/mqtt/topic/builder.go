package topic

import (
	"fmt"
	"strings"
)

// Standard MQTT wildcard definitions.
const (
	// Wildcard is the single-level wildcard "+".
	Wildcard = "+"

	// MultiWildcard is the multi-level wildcard "#". It must be the last level.
	MultiWildcard = "#"
)

// SuffixTracker is the topic level under which the location service
// publishes tracker events for a device.
// Structure: {deviceID}/tracker
const SuffixTracker = "tracker"

// Builder encapsulates the logic for constructing device scoped topics.
type Builder struct {
	suffix string
}

// NewBuilder creates a Builder for topics of the form {deviceID}/{suffix}.
// An empty suffix falls back to SuffixTracker.
func NewBuilder(suffix string) *Builder {
	suffix = strings.Trim(suffix, "/")
	if suffix == "" {
		suffix = SuffixTracker
	}
	return &Builder{suffix: suffix}
}

// Device returns the event topic for a single device.
func (b *Builder) Device(deviceID string) string {
	return fmt.Sprintf("%s/%s", deviceID, b.suffix)
}

// AllDevices returns the wildcard filter matching every device's event topic.
func (b *Builder) AllDevices() string {
	return b.Device(Wildcard)
}

// DeviceID extracts the device id from a topic produced by Device.
func (b *Builder) DeviceID(topic string) (string, bool) {
	id, ok := strings.CutSuffix(topic, "/"+b.suffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
