// Package history pulls a device's recorded positions from the tracker.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/awscall"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/pkg/log"
)

const (
	// Lookback is the fixed lower bound of the fetch window, relative to now.
	Lookback = 24 * time.Hour

	// DefaultMaxPages caps one fetch when no cap is configured.
	DefaultMaxPages = 50
)

// PositionHistoryAPI is the subset of the location client used by Fetcher.
type PositionHistoryAPI interface {
	GetDevicePositionHistory(ctx context.Context, params *location.GetDevicePositionHistoryInput, optFns ...func(*location.Options)) (*location.GetDevicePositionHistoryOutput, error)
}

// Config configures a Fetcher.
type Config struct {
	TrackerName string
	DeviceID    string
	MaxPages    int
	Caller      *awscall.Caller
}

// Fetcher drains the position history of one device.
type Fetcher struct {
	api      PositionHistoryAPI
	tracker  string
	deviceID string
	maxPages int
	caller   *awscall.Caller
	now      func() time.Time
}

// NewFetcher returns a Fetcher for cfg.
func NewFetcher(api PositionHistoryAPI, cfg Config) *Fetcher {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	caller := cfg.Caller
	if caller == nil {
		caller = &awscall.Caller{}
	}
	return &Fetcher{
		api:      api,
		tracker:  cfg.TrackerName,
		deviceID: cfg.DeviceID,
		maxPages: maxPages,
		caller:   caller,
		now:      time.Now,
	}
}

// Result is the outcome of one FetchSince call.
type Result struct {
	// Positions holds every page, each sorted by sample time descending,
	// concatenated in fetch order.
	Positions []core.DevicePosition
	Pages     int
	// Dropped counts records without both coordinates.
	Dropped int
}

// Window returns the time range queried for checkpoint at now.
func Window(checkpoint, now time.Time) (start, end time.Time) {
	start = now.Add(-Lookback)
	end = now
	if !checkpoint.IsZero() {
		end = checkpoint
	}
	return start, end
}

// FetchSince follows the cursor chain for the window derived from checkpoint.
// A page cap hit or a repeated cursor fails with core.ErrPaginationExhausted
// and a failed page returns the call error. Either way the pages gathered so
// far are returned with it.
func (f *Fetcher) FetchSince(ctx context.Context, checkpoint time.Time) (Result, error) {
	now := f.now()
	start, end := Window(checkpoint, now)

	var (
		res    Result
		cursor *string
		seen   = map[string]struct{}{}
	)

	for {
		if res.Pages >= f.maxPages {
			metrics.PaginationExhaustedTotal.Inc()
			return res, fmt.Errorf("stopped after %d pages: %w", res.Pages, core.ErrPaginationExhausted)
		}

		var out *location.GetDevicePositionHistoryOutput
		err := f.caller.Do(ctx, "GetDevicePositionHistory", func(ctx context.Context) error {
			var err error
			out, err = f.api.GetDevicePositionHistory(ctx, &location.GetDevicePositionHistoryInput{
				TrackerName:        aws.String(f.tracker),
				DeviceId:           aws.String(f.deviceID),
				StartTimeInclusive: aws.Time(start),
				EndTimeExclusive:   aws.Time(end),
				NextToken:          cursor,
			})
			return err
		})
		if err != nil {
			log.Error(err, "Failed to fetch position history page", "deviceID", f.deviceID, "page", res.Pages+1)
			return res, fmt.Errorf("page %d: %w", res.Pages+1, err)
		}

		res.Pages++
		metrics.HistoryPagesTotal.Inc()

		page, dropped := convertPage(f.deviceID, out, now)
		res.Positions = append(res.Positions, page...)
		res.Dropped += dropped
		metrics.HistoryPositionsTotal.WithLabelValues("kept").Add(float64(len(page)))
		metrics.HistoryPositionsTotal.WithLabelValues("dropped").Add(float64(dropped))

		next := aws.ToString(out.NextToken)
		if next == "" {
			return res, nil
		}
		if _, dup := seen[next]; dup {
			metrics.PaginationExhaustedTotal.Inc()
			log.Warn("Position history cursor repeated", "deviceID", f.deviceID, "page", res.Pages)
			return res, fmt.Errorf("cursor repeated after %d pages: %w", res.Pages, core.ErrPaginationExhausted)
		}
		seen[next] = struct{}{}
		cursor = aws.String(next)
	}
}

// convertPage sorts one page by sample time descending and drops records
// with fewer than two coordinates. A missing sample time counts as now.
func convertPage(deviceID string, out *location.GetDevicePositionHistoryOutput, now time.Time) ([]core.DevicePosition, int) {
	if out == nil {
		return nil, 0
	}

	page := make([]core.DevicePosition, 0, len(out.DevicePositions))
	dropped := 0
	for _, p := range out.DevicePositions {
		if len(p.Position) < 2 {
			dropped++
			continue
		}
		sampleTime := now
		if p.SampleTime != nil {
			sampleTime = *p.SampleTime
		}
		id := aws.ToString(p.DeviceId)
		if id == "" {
			id = deviceID
		}
		page = append(page, core.DevicePosition{
			DeviceID:   id,
			Longitude:  p.Position[0],
			Latitude:   p.Position[1],
			SampleTime: sampleTime,
		})
	}

	sort.SliceStable(page, func(i, j int) bool {
		return page[i].SampleTime.After(page[j].SampleTime)
	})
	if dropped > 0 {
		log.Debug("Dropped malformed positions", "deviceID", deviceID, "count", dropped)
	}
	return page, dropped
}
