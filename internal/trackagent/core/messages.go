package core

import (
	"fmt"
	"time"
)

// User-facing alert texts.
const (
	TitleError                = "Error"
	TitleLocationPermission   = "Location permission required"
	MessageNotConfigured      = "Not all fields are configured"
	MessageLocationPermission = "Location access is needed to track this device. Enable it in the device settings and start tracking again."

	LabelStartTracking = "Start tracking"
	LabelStopTracking  = "Stop tracking"

	ColorStart = "blue"
	ColorStop  = "red"
)

// eventTimeLayout renders event times in a medium date and time style.
const eventTimeLayout = "Jan 2, 2006 at 3:04:05 PM"

// Description returns "entered" or "exited".
func (t GeofenceEventType) Description() string {
	switch t {
	case GeofenceEnter:
		return "entered"
	case GeofenceExit:
		return "exited"
	default:
		return string(t)
	}
}

// AlertFor maps a geofence event onto the alert shown to the user.
func AlertFor(e GeofenceEvent, loc *time.Location) Alert {
	if loc == nil {
		loc = time.Local
	}
	desc := e.Type.Description()
	return Alert{
		Title:   fmt.Sprintf("Geofence %s", desc),
		Message: fmt.Sprintf("Device %s %s geofence %s at %s", e.DeviceID, desc, e.GeofenceID, e.EventTime.In(loc).Format(eventTimeLayout)),
	}
}

// TrackingErrorAlert is the generic alert for a failed start.
func TrackingErrorAlert(err error) Alert {
	return Alert{Title: TitleError, Message: fmt.Sprintf("Error in tracking: %v", err)}
}
