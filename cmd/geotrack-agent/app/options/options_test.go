package options

import (
	"testing"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/tracker"
)

func TestAgentOptionsValidate(t *testing.T) {
	o := NewAgentOptions()
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	o.TrackingOptions.TickInterval = 0
	o.AwsOptions.CallTimeout = -time.Second
	err := o.Validate()
	if err == nil {
		t.Fatal("Validate() accepted zero tick interval and negative call timeout")
	}
}

func TestAgentOptionsFlags(t *testing.T) {
	fss := NewAgentOptions().Flags()
	for _, name := range []string{"aws", "tracking", "mqtt", "http", "s3", "log", "misc"} {
		if _, ok := fss.FlagSets[name]; !ok {
			t.Errorf("flag set %q missing", name)
		}
	}
	if fss.FlagSet("aws").Lookup("aws.identity-pool-id") == nil {
		t.Error("--aws.identity-pool-id not registered")
	}
}

func TestCompleteDefaultsArchiveRegion(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		want     string
	}{
		{name: "derived from pool", want: "eu-west-1"},
		{name: "explicit kept", explicit: "ap-south-1", want: "ap-south-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewAgentOptions()
			o.AwsOptions.IdentityPoolID = "eu-west-1:1234"
			if tt.explicit != "" {
				o.S3Options.Region = tt.explicit
			}
			if err := o.Complete(); err != nil {
				t.Fatal(err)
			}
			if o.S3Options.Region != tt.want {
				t.Errorf("s3 region = %q, want %s", o.S3Options.Region, tt.want)
			}
		})
	}
}

func TestReloadAppliesFilters(t *testing.T) {
	o := NewAgentOptions()
	o.Reload()

	var got tracker.FilterConfig
	calls := 0
	o.OnReload(func(cfg tracker.FilterConfig) {
		got = cfg
		calls++
	})

	o.TrackingOptions.DistanceFilter = true
	o.TrackingOptions.DistanceInterval = 50
	o.Reload()

	if calls != 1 {
		t.Fatalf("reload calls = %d, want 1", calls)
	}
	if !got.Distance || got.DistanceInterval != 50 || got.TimeInterval != 30*time.Second {
		t.Errorf("filters = %+v", got)
	}
}
