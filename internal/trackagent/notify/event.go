package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// eventMessage is the wire form of a geofence event.
type eventMessage struct {
	TrackerEventType string `json:"trackerEventType"`
	GeofenceID       string `json:"geofenceId"`
	EventTime        string `json:"eventTime"`
	DeviceID         string `json:"deviceId"`
}

// DecodeEvent parses a geofence event payload. Any malformed payload,
// including an unknown event type or a bad timestamp, fails with core.ErrDecode.
func DecodeEvent(payload []byte) (core.GeofenceEvent, error) {
	var msg eventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return core.GeofenceEvent{}, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}

	var typ core.GeofenceEventType
	switch strings.ToLower(msg.TrackerEventType) {
	case string(core.GeofenceEnter):
		typ = core.GeofenceEnter
	case string(core.GeofenceExit):
		typ = core.GeofenceExit
	default:
		return core.GeofenceEvent{}, fmt.Errorf("%w: unknown event type %q", core.ErrDecode, msg.TrackerEventType)
	}

	if msg.GeofenceID == "" {
		return core.GeofenceEvent{}, fmt.Errorf("%w: missing geofenceId", core.ErrDecode)
	}

	at, err := time.Parse(time.RFC3339Nano, msg.EventTime)
	if err != nil {
		return core.GeofenceEvent{}, fmt.Errorf("%w: eventTime: %w", core.ErrDecode, err)
	}

	return core.GeofenceEvent{
		GeofenceID: msg.GeofenceID,
		Type:       typ,
		EventTime:  at,
		DeviceID:   msg.DeviceID,
	}, nil
}

// EncodeEvent renders e in the wire form the location service publishes.
func EncodeEvent(e core.GeofenceEvent) ([]byte, error) {
	return json.Marshal(eventMessage{
		TrackerEventType: strings.ToUpper(string(e.Type)),
		GeofenceID:       e.GeofenceID,
		EventTime:        e.EventTime.UTC().Format(time.RFC3339Nano),
		DeviceID:         e.DeviceID,
	})
}
