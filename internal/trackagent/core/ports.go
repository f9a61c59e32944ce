package core

import (
	"context"
	"time"
)

// PositionSource produces device location fixes. Start fails with
// ErrPermissionDenied when the user has not granted location access.
type PositionSource interface {
	Start(ctx context.Context) (<-chan Location, error)
}

// View is the UI collaborator. Implementations marshal every call onto the
// UI's single-threaded update context; callers may invoke it from any goroutine.
type View interface {
	DrawPoints(positions []DevicePosition)
	DisplayGeofences(geofences []Geofence)
	ShowAlert(alert Alert)
	SetTracking(active bool)
}

// AlertPresenter receives user-facing alerts.
type AlertPresenter interface {
	ShowAlert(alert Alert)
}

// FlagStore persists the "tracking active" flag across restarts.
type FlagStore interface {
	TrackingActive() (bool, error)
	SetTrackingActive(active bool) error
}

// BatchArchiver exports a fetched history batch. Optional.
type BatchArchiver interface {
	Archive(ctx context.Context, deviceID string, at time.Time, positions []DevicePosition) error
}
