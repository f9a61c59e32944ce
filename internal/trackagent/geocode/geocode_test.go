package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/geoplaces"
	"github.com/aws/aws-sdk-go-v2/service/geoplaces/types"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

type fakePlaces struct {
	in  *geoplaces.ReverseGeocodeInput
	out *geoplaces.ReverseGeocodeOutput
}

func (f *fakePlaces) ReverseGeocode(ctx context.Context, in *geoplaces.ReverseGeocodeInput, _ ...func(*geoplaces.Options)) (*geoplaces.ReverseGeocodeOutput, error) {
	f.in = in
	return f.out, nil
}

func TestReverse(t *testing.T) {
	api := &fakePlaces{out: &geoplaces.ReverseGeocodeOutput{ResultItems: []types.ReverseGeocodeResultItem{
		{Address: &types.Address{Label: aws.String("1 World Way, Los Angeles, CA")}},
		{Address: &types.Address{Label: aws.String("second")}},
	}}}
	g, err := New(api, "key", nil)
	if err != nil {
		t.Fatal(err)
	}

	label, err := g.Reverse(context.Background(), -118.368004, 33.930338)
	if err != nil || label != "1 World Way, Los Angeles, CA" {
		t.Fatalf("Reverse() = %q, %v", label, err)
	}

	in := api.in
	if aws.ToString(in.Key) != "key" || aws.ToString(in.Language) != "en" || aws.ToInt32(in.MaxResults) != 10 || aws.ToInt64(in.QueryRadius) != 100 {
		t.Errorf("unexpected input %+v", in)
	}
	if in.QueryPosition[0] != -118.368004 || in.QueryPosition[1] != 33.930338 {
		t.Errorf("position = %v", in.QueryPosition)
	}
}

func TestReverseNoResults(t *testing.T) {
	g, _ := New(&fakePlaces{out: &geoplaces.ReverseGeocodeOutput{}}, "key", nil)
	if label, err := g.Reverse(context.Background(), 0, 0); err != nil || label != "" {
		t.Errorf("Reverse() = %q, %v", label, err)
	}
	if _, err := g.Reverse(context.Background(), 0, 95); err == nil {
		t.Error("expected range error")
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(&fakePlaces{}, " ", nil); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("New() error = %v", err)
	}
}
