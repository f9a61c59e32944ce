package core

import (
	"time"
)

// Credentials are short-lived cloud credentials for an unauthenticated identity.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Expiry          time.Time
}

// Expired reports whether the credentials are unusable at now, allowing for
// the given refresh window.
func (c Credentials) Expired(now time.Time, window time.Duration) bool {
	if c.AccessKeyID == "" {
		return true
	}
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(window).Before(c.Expiry)
}

// DevicePosition is one recorded position of a device, as returned by the tracker.
type DevicePosition struct {
	DeviceID   string    `json:"deviceId"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	SampleTime time.Time `json:"sampleTime"`
}

// Location is a fix produced by the device's position source.
type Location struct {
	Longitude float64
	Latitude  float64
	// Accuracy is the horizontal accuracy radius in meters, zero when unknown.
	Accuracy   float64
	SampleTime time.Time
}

// Position returns the location in [lon, lat] order.
func (l Location) Position() []float64 {
	return []float64{l.Longitude, l.Latitude}
}

// GeofenceEventType is the kind of geofence transition.
type GeofenceEventType string

const (
	GeofenceEnter GeofenceEventType = "enter"
	GeofenceExit  GeofenceEventType = "exit"
)

// GeofenceEvent is a decoded geofence transition for a device.
type GeofenceEvent struct {
	GeofenceID string
	Type       GeofenceEventType
	EventTime  time.Time
	DeviceID   string
}

// Geofence is one entry of a geofence collection.
type Geofence struct {
	ID      string      `json:"id"`
	Status  string      `json:"status,omitempty"`
	Polygon [][]float64 `json:"polygon,omitempty"`
	Circle  *Circle     `json:"circle,omitempty"`
}

// Circle is a circular geofence geometry.
type Circle struct {
	Center []float64 `json:"center"`
	Radius float64   `json:"radius"`
}

// Alert is a user-visible title and message pair.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
