package options

import (
	"sync"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/geotrack/internal/trackagent"
	"github.com/autopeer-io/geotrack/internal/trackagent/tracker"
	"github.com/autopeer-io/geotrack/pkg/app"
	"github.com/autopeer-io/geotrack/pkg/log"
	"github.com/autopeer-io/geotrack/pkg/options"
)

type AgentOptions struct {
	AwsOptions      *options.AwsOptions      `json:"aws" mapstructure:"aws"`
	TrackingOptions *options.TrackingOptions `json:"tracking" mapstructure:"tracking"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	Log             *log.Options             `json:"log" mapstructure:"log"`

	// Console renders the UI state to stdout. Pair it with a file log output.
	Console bool `json:"console" mapstructure:"console"`

	mu       sync.Mutex
	onReload func(tracker.FilterConfig)
}

var (
	_ app.NamedFlagSetOptions = (*AgentOptions)(nil)
	_ app.ReloadableOptions   = (*AgentOptions)(nil)
)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		AwsOptions:      options.NewAwsOptions(),
		TrackingOptions: options.NewTrackingOptions(),
		MqttOptions:     options.NewMqttOptions(),
		HttpOptions:     options.NewHttpOptions(),
		S3Options:       options.NewS3Options(),
		Log:             log.NewOptions(),
	}

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.AwsOptions.AddFlags(fss.FlagSet("aws"))
	o.TrackingOptions.AddFlags(fss.FlagSet("tracking"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.Log.AddFlags(fss.FlagSet("log"))
	addConsoleFlag(&o.Console, fss.FlagSet("misc"))
	return fss
}

func addConsoleFlag(v *bool, fs *pflag.FlagSet) {
	fs.BoolVar(v, "console", *v, "Render the tracking view to stdout. Use with --log.output-paths pointing elsewhere.")
}

func (o *AgentOptions) Complete() error {
	if o.S3Options.Region == "" {
		o.S3Options.Region = o.AwsOptions.Region()
	}
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.AwsOptions.Validate()...)
	errs = append(errs, o.TrackingOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) Config() (*trackagent.Config, error) {
	return &trackagent.Config{
		AwsOptions:      o.AwsOptions,
		TrackingOptions: o.TrackingOptions,
		MqttOptions:     o.MqttOptions,
		HttpOptions:     o.HttpOptions,
		S3Options:       o.S3Options,
	}, nil
}

// OnReload registers fn to receive the filter configuration after every
// config file change.
func (o *AgentOptions) OnReload(fn func(tracker.FilterConfig)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onReload = fn
}

// Reload re-applies the location filters. Other settings take effect on restart.
func (o *AgentOptions) Reload() {
	o.mu.Lock()
	fn := o.onReload
	o.mu.Unlock()
	if fn == nil {
		return
	}

	cfg, _ := o.Config()
	fn(cfg.Filters())
}
