// Package geocode resolves positions to address labels.
package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/geoplaces"

	"github.com/autopeer-io/geotrack/internal/trackagent/awscall"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// Query parameters used for every lookup.
const (
	Language    = "en"
	MaxResults  = 10
	QueryRadius = 100 // meters
)

// ReverseGeocodeAPI is the subset of the places client used by Geocoder.
type ReverseGeocodeAPI interface {
	ReverseGeocode(ctx context.Context, params *geoplaces.ReverseGeocodeInput, optFns ...func(*geoplaces.Options)) (*geoplaces.ReverseGeocodeOutput, error)
}

// NewClient returns a places client that authenticates with an API key.
func NewClient(cfg aws.Config, region string) *geoplaces.Client {
	return geoplaces.NewFromConfig(cfg, func(o *geoplaces.Options) {
		o.Region = region
		o.Credentials = aws.AnonymousCredentials{}
	})
}

// Geocoder looks up the address of a position.
type Geocoder struct {
	api    ReverseGeocodeAPI
	apiKey string
	caller *awscall.Caller
}

// New returns a Geocoder. It fails with core.ErrConfiguration without an API key.
func New(api ReverseGeocodeAPI, apiKey string, caller *awscall.Caller) (*Geocoder, error) {
	if strings.TrimSpace(apiKey) == "" || api == nil {
		return nil, fmt.Errorf("reverse geocoding needs an api key and region: %w", core.ErrConfiguration)
	}
	if caller == nil {
		caller = &awscall.Caller{}
	}
	return &Geocoder{api: api, apiKey: apiKey, caller: caller}, nil
}

// Reverse returns the label of the best match for [lon, lat], or "" when
// nothing was found.
func (g *Geocoder) Reverse(ctx context.Context, lon, lat float64) (string, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", fmt.Errorf("position [%v, %v] is out of range", lon, lat)
	}

	var out *geoplaces.ReverseGeocodeOutput
	err := g.caller.Do(ctx, "ReverseGeocode", func(ctx context.Context) error {
		var err error
		out, err = g.api.ReverseGeocode(ctx, &geoplaces.ReverseGeocodeInput{
			Key:           aws.String(g.apiKey),
			Language:      aws.String(Language),
			MaxResults:    aws.Int32(MaxResults),
			QueryPosition: []float64{lon, lat},
			QueryRadius:   aws.Int64(QueryRadius),
		})
		return err
	})
	if err != nil {
		return "", err
	}

	if len(out.ResultItems) == 0 || out.ResultItems[0].Address == nil {
		return "", nil
	}
	return aws.ToString(out.ResultItems[0].Address.Label), nil
}
