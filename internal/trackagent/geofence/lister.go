package geofence

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/aws/aws-sdk-go-v2/service/location/types"

	"github.com/autopeer-io/geotrack/internal/trackagent/awscall"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// Lister lists the geofences of a collection.
type Lister struct {
	api    location.ListGeofencesAPIClient
	caller *awscall.Caller
}

// NewLister returns a Lister. A nil caller applies no time budget.
func NewLister(api location.ListGeofencesAPIClient, caller *awscall.Caller) *Lister {
	if caller == nil {
		caller = &awscall.Caller{}
	}
	return &Lister{api: api, caller: caller}
}

// List returns every geofence of the collection named by collectionArn.
func (l *Lister) List(ctx context.Context, collectionArn string) ([]core.Geofence, error) {
	collection, err := CollectionName(collectionArn)
	if err != nil {
		return nil, err
	}

	p := location.NewListGeofencesPaginator(l.api, &location.ListGeofencesInput{
		CollectionName: aws.String(collection),
	})

	var geofences []core.Geofence
	for p.HasMorePages() {
		var out *location.ListGeofencesOutput
		err := l.caller.Do(ctx, "ListGeofences", func(ctx context.Context) error {
			var err error
			out, err = p.NextPage(ctx)
			return err
		})
		if err != nil {
			return geofences, err
		}
		for _, e := range out.Entries {
			geofences = append(geofences, toGeofence(e))
		}
	}
	return geofences, nil
}

func toGeofence(e types.ListGeofenceResponseEntry) core.Geofence {
	g := core.Geofence{
		ID:     aws.ToString(e.GeofenceId),
		Status: aws.ToString(e.Status),
	}
	if e.Geometry == nil {
		return g
	}
	if len(e.Geometry.Polygon) > 0 {
		g.Polygon = e.Geometry.Polygon[0]
	}
	if c := e.Geometry.Circle; c != nil {
		g.Circle = &core.Circle{Center: c.Center, Radius: aws.ToFloat64(c.Radius)}
	}
	return g
}
