package options

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:8080", false},
		{"0.0.0.0:0", false},
		{":8080", false},
		{"localhost:9000", false},
		{"127.0.0.1", true},
		{"127.0.0.1:http", true},
		{"127.0.0.1:70000", true},
		{"bad host:80", true},
	}
	for _, tt := range tests {
		err := ValidateAddress(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
		}
	}
}

func TestAwsOptionsMissing(t *testing.T) {
	o := NewAwsOptions()
	o.IdentityPoolID = "us-east-1:abc"
	o.TrackerName = "  "
	o.IotEndpoint = "abc-ats.iot.us-east-1.amazonaws.com"

	got := o.Missing()
	want := []string{"TrackerName", "GeofenceCollectionArn"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}

	o.TrackerName = "tracker"
	o.GeofenceCollectionArn = "arn:aws:geo:us-east-1:1:geofence-collection/C"
	if got := o.Missing(); got != nil {
		t.Errorf("Missing() = %v, want nil", got)
	}
}

func TestAwsOptionsRegion(t *testing.T) {
	tests := []struct {
		pool string
		want string
	}{
		{"us-east-1:1f2e3d", "us-east-1"},
		{"eu-west-2:x", "eu-west-2"},
		{"", ""},
		{"noregion", "noregion"},
	}
	for _, tt := range tests {
		o := &AwsOptions{IdentityPoolID: tt.pool}
		if got := o.Region(); got != tt.want {
			t.Errorf("Region(%q) = %q, want %q", tt.pool, got, tt.want)
		}
	}
}

func TestAwsOptionsValidate(t *testing.T) {
	o := NewAwsOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("defaults should validate, got %v", errs)
	}
	o.IdentityPoolID = "nocolon"
	o.CallTimeout = 0
	if errs := o.Validate(); len(errs) != 2 {
		t.Errorf("Validate() = %v, want 2 errors", errs)
	}
}

func TestTrackingOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *TrackingOptions)
		errs   int
	}{
		{"defaults", func(o *TrackingOptions) {}, 0},
		{"zero tick", func(o *TrackingOptions) { o.TickInterval = 0 }, 1},
		{"zero pages", func(o *TrackingOptions) { o.MaxPages = 0 }, 1},
		{"unknown source", func(o *TrackingOptions) { o.Source = "gps" }, 1},
		{"no positions", func(o *TrackingOptions) { o.Positions = nil }, 1},
		{"negative filters", func(o *TrackingOptions) { o.TimeInterval = -time.Second; o.DistanceInterval = -1 }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewTrackingOptions()
			tt.mutate(o)
			if errs := o.Validate(); len(errs) != tt.errs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.errs)
			}
		})
	}
}

func TestMqttOptions(t *testing.T) {
	o := NewMqttOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("defaults should validate, got %v", errs)
	}

	cfg := o.ToClientConfig("identity-1")
	if cfg.ClientID != "identity-1" || cfg.KeepAlive != 60 || cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("unexpected client config %+v", cfg)
	}

	o.BackoffMax = o.BackoffMin / 2
	if errs := o.Validate(); len(errs) != 1 {
		t.Errorf("Validate() = %v, want 1 error", errs)
	}
}

func TestAddFlagsPrefix(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	NewHttpOptions().AddFlags(fs, "agent")
	NewS3Options().AddFlags(fs)

	for _, name := range []string{"agent.http.addr", "s3.bucket-name"} {
		if fs.Lookup(name) == nil {
			t.Errorf("flag %q not registered", name)
		}
	}
}
