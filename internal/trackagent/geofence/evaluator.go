// Package geofence evaluates device positions against a geofence collection
// and lists the collection's geofences.
package geofence

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/aws/aws-sdk-go-v2/service/location/types"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/awscall"
	"github.com/autopeer-io/geotrack/pkg/log"
)

// EvaluateAPI is the subset of the location client used by Evaluator.
type EvaluateAPI interface {
	BatchEvaluateGeofences(ctx context.Context, params *location.BatchEvaluateGeofencesInput, optFns ...func(*location.Options)) (*location.BatchEvaluateGeofencesOutput, error)
}

// Evaluator submits device positions for server-side geofence evaluation.
type Evaluator struct {
	api    EvaluateAPI
	caller *awscall.Caller
}

// NewEvaluator returns an Evaluator. A nil caller applies no time budget.
func NewEvaluator(api EvaluateAPI, caller *awscall.Caller) *Evaluator {
	if caller == nil {
		caller = &awscall.Caller{}
	}
	return &Evaluator{api: api, caller: caller}
}

// ItemError is one per-position failure reported by the service.
type ItemError struct {
	DeviceID string
	Code     string
	Message  string
}

// Evaluate sends exactly one position update for deviceID. Per-item errors
// are logged and returned but do not fail the call.
func (e *Evaluator) Evaluate(ctx context.Context, deviceID string, position []float64, sampleTime time.Time, collectionArn string) ([]ItemError, error) {
	collection, err := CollectionName(collectionArn)
	if err != nil {
		metrics.GeofenceEvaluationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if len(position) < 2 {
		metrics.GeofenceEvaluationsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("position needs longitude and latitude, got %v", position)
	}

	var out *location.BatchEvaluateGeofencesOutput
	err = e.caller.Do(ctx, "BatchEvaluateGeofences", func(ctx context.Context) error {
		var err error
		out, err = e.api.BatchEvaluateGeofences(ctx, &location.BatchEvaluateGeofencesInput{
			CollectionName: aws.String(collection),
			DevicePositionUpdates: []types.DevicePositionUpdate{{
				DeviceId:   aws.String(deviceID),
				Position:   []float64{position[0], position[1]},
				SampleTime: aws.Time(sampleTime),
			}},
		})
		return err
	})
	if err != nil {
		metrics.GeofenceEvaluationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	var items []ItemError
	for _, be := range out.Errors {
		item := ItemError{DeviceID: aws.ToString(be.DeviceId)}
		if be.Error != nil {
			item.Code = string(be.Error.Code)
			item.Message = aws.ToString(be.Error.Message)
		}
		log.Warn("Geofence evaluation item failed", "collection", collection, "deviceID", item.DeviceID, "code", item.Code, "message", item.Message)
		items = append(items, item)
	}

	if len(items) > 0 {
		metrics.GeofenceEvaluationsTotal.WithLabelValues("item_error").Inc()
	} else {
		metrics.GeofenceEvaluationsTotal.WithLabelValues("success").Inc()
		log.Debug("Geofence evaluation succeeded", "collection", collection, "deviceID", deviceID)
	}
	return items, nil
}
