package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TrackingOptions)(nil)

// Position source kinds.
const (
	SourceStatic = "static"
	SourceRoute  = "route"
)

// TrackingOptions controls the tracking session and the polling loop.
type TrackingOptions struct {
	DeviceID     string        `json:"device-id" mapstructure:"device-id"`
	TickInterval time.Duration `json:"tick-interval" mapstructure:"tick-interval"`
	MaxPages     int           `json:"max-pages" mapstructure:"max-pages"`
	StateFile    string        `json:"state-file" mapstructure:"state-file"`
	AutoStart    bool          `json:"auto-start" mapstructure:"auto-start"`

	TimeFilter       bool          `json:"time-filter" mapstructure:"time-filter"`
	DistanceFilter   bool          `json:"distance-filter" mapstructure:"distance-filter"`
	AccuracyFilter   bool          `json:"accuracy-filter" mapstructure:"accuracy-filter"`
	TimeInterval     time.Duration `json:"time-interval" mapstructure:"time-interval"`
	DistanceInterval float64       `json:"distance-interval" mapstructure:"distance-interval"`

	// Source selects where device fixes come from.
	Source string `json:"source" mapstructure:"source"`
	// Positions are "lat,lon" pairs. static uses the first, route replays all of them.
	Positions      []string      `json:"positions" mapstructure:"positions"`
	SourceInterval time.Duration `json:"source-interval" mapstructure:"source-interval"`
	// LocationPermission simulates the user's location permission choice.
	LocationPermission bool `json:"location-permission" mapstructure:"location-permission"`
}

// NewTrackingOptions creates a TrackingOptions with default values.
func NewTrackingOptions() *TrackingOptions {
	return &TrackingOptions{
		TickInterval:     10 * time.Second,
		MaxPages:         50,
		StateFile:        "geotrack-state.yaml",
		TimeInterval:     30 * time.Second,
		DistanceInterval: 30,
		Source:           SourceRoute,
		Positions: []string{
			"33.930338,-118.368004",
			"33.933522,-118.370309",
			"33.936907,-118.371986",
			"33.942014,-118.372717",
		},
		SourceInterval:     5 * time.Second,
		LocationPermission: true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *TrackingOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("--tracking.tick-interval must be positive"))
	}
	if o.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("--tracking.max-pages must be positive"))
	}
	if o.TimeInterval < 0 {
		errs = append(errs, fmt.Errorf("--tracking.time-interval must not be negative"))
	}
	if o.DistanceInterval < 0 {
		errs = append(errs, fmt.Errorf("--tracking.distance-interval must not be negative"))
	}
	switch o.Source {
	case SourceStatic, SourceRoute:
	default:
		errs = append(errs, fmt.Errorf("--tracking.source must be %q or %q, got %q", SourceStatic, SourceRoute, o.Source))
	}
	if len(o.Positions) == 0 {
		errs = append(errs, fmt.Errorf("--tracking.positions must contain at least one lat,lon pair"))
	}
	if o.SourceInterval <= 0 {
		errs = append(errs, fmt.Errorf("--tracking.source-interval must be positive"))
	}
	return errs
}

// AddFlags adds flags for TrackingOptions to the specified FlagSet.
func (o *TrackingOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.DeviceID, join(prefixes, "tracking", "device-id"), o.DeviceID, "Device id reported to the tracker. Generated and persisted when empty.")
	fs.DurationVar(&o.TickInterval, join(prefixes, "tracking", "tick-interval"), o.TickInterval, "Interval between history fetch and geofence evaluation cycles.")
	fs.IntVar(&o.MaxPages, join(prefixes, "tracking", "max-pages"), o.MaxPages, "Maximum number of history pages fetched per cycle.")
	fs.StringVar(&o.StateFile, join(prefixes, "tracking", "state-file"), o.StateFile, "File persisting the tracking flag and device id across restarts.")
	fs.BoolVar(&o.AutoStart, join(prefixes, "tracking", "auto-start"), o.AutoStart, "Start tracking on launch even if it was not active before.")

	fs.BoolVar(&o.TimeFilter, join(prefixes, "tracking", "time-filter"), o.TimeFilter, "Drop position updates sampled sooner than time-interval after the last one.")
	fs.BoolVar(&o.DistanceFilter, join(prefixes, "tracking", "distance-filter"), o.DistanceFilter, "Drop position updates closer than distance-interval to the last one.")
	fs.BoolVar(&o.AccuracyFilter, join(prefixes, "tracking", "accuracy-filter"), o.AccuracyFilter, "Drop position updates that moved less than their reported accuracy.")
	fs.DurationVar(&o.TimeInterval, join(prefixes, "tracking", "time-interval"), o.TimeInterval, "Minimum time between reported positions for the time filter.")
	fs.Float64Var(&o.DistanceInterval, join(prefixes, "tracking", "distance-interval"), o.DistanceInterval, "Minimum distance in meters between reported positions for the distance filter.")

	fs.StringVar(&o.Source, join(prefixes, "tracking", "source"), o.Source, "Position source: static or route.")
	fs.StringSliceVar(&o.Positions, join(prefixes, "tracking", "positions"), o.Positions, "Positions as lat,lon pairs used by the position source.")
	fs.DurationVar(&o.SourceInterval, join(prefixes, "tracking", "source-interval"), o.SourceInterval, "Interval between fixes emitted by the position source.")
	fs.BoolVar(&o.LocationPermission, join(prefixes, "tracking", "location-permission"), o.LocationPermission, "Whether the device grants location access. When false, starting tracking fails with a permission error.")
}
