package trackagent

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/location"

	"github.com/autopeer-io/geotrack/internal/pkg/awsiot"
	"github.com/autopeer-io/geotrack/internal/pkg/awslog"
	"github.com/autopeer-io/geotrack/internal/trackagent/archive"
	"github.com/autopeer-io/geotrack/internal/trackagent/auth"
	"github.com/autopeer-io/geotrack/internal/trackagent/awscall"
	"github.com/autopeer-io/geotrack/internal/trackagent/coordinator"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/internal/trackagent/geocode"
	"github.com/autopeer-io/geotrack/internal/trackagent/geofence"
	"github.com/autopeer-io/geotrack/internal/trackagent/history"
	"github.com/autopeer-io/geotrack/internal/trackagent/notify"
	"github.com/autopeer-io/geotrack/internal/trackagent/persist"
	"github.com/autopeer-io/geotrack/internal/trackagent/server"
	"github.com/autopeer-io/geotrack/internal/trackagent/source"
	"github.com/autopeer-io/geotrack/internal/trackagent/tracker"
	"github.com/autopeer-io/geotrack/internal/trackagent/ui"
	"github.com/autopeer-io/geotrack/pkg/log"
	"github.com/autopeer-io/geotrack/pkg/mqtt"
	"github.com/autopeer-io/geotrack/pkg/mqtt/topic"
	"github.com/autopeer-io/geotrack/pkg/options"
)

type Config struct {
	AwsOptions      *options.AwsOptions
	TrackingOptions *options.TrackingOptions
	MqttOptions     *options.MqttOptions
	HttpOptions     *options.HttpOptions
	S3Options       *options.S3Options

	// Console receives the rendered UI. Nil disables the console.
	Console io.Writer
}

// Filters returns the location filter configuration of the tracking options.
func (cfg *Config) Filters() tracker.FilterConfig {
	o := cfg.TrackingOptions
	return tracker.FilterConfig{
		Time:             o.TimeFilter,
		Distance:         o.DistanceFilter,
		Accuracy:         o.AccuracyFilter,
		TimeInterval:     o.TimeInterval,
		DistanceInterval: o.DistanceInterval,
	}
}

func (cfg *Config) NewAgent(ctx context.Context) (*Agent, error) {
	awsOpts := cfg.AwsOptions
	missing := awsOpts.Missing()
	if len(missing) > 0 {
		log.Warn("Required configuration is missing, tracking cannot start until it is set", "missing", missing)
	}

	store, err := persist.Open(cfg.TrackingOptions.StateFile)
	if err != nil {
		return nil, err
	}
	deviceID, err := store.DeviceID(cfg.TrackingOptions.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device id: %w", err)
	}

	awsCfg, err := loadAWSConfig(ctx, awsOpts.Region())
	if err != nil {
		return nil, err
	}

	session := auth.NewSession(auth.NewClientFactory(awsCfg))
	provider := auth.NewCachedProvider(session)
	caller := &awscall.Caller{Timeout: awsOpts.CallTimeout, Invalidator: provider}

	locationClient := location.NewFromConfig(awsCfg, func(o *location.Options) {
		o.Credentials = provider
	})

	loop := ui.NewLoop()

	positions, err := cfg.positionSource()
	if err != nil {
		return nil, err
	}
	trackingSession := tracker.NewSession(locationClient, positions, tracker.Config{
		TrackerName: awsOpts.TrackerName,
		DeviceID:    deviceID,
		Filters:     cfg.Filters(),
		Caller:      caller,
	})

	presigner := awsiot.NewPresigner(strings.TrimSpace(awsOpts.IotEndpoint), awsOpts.Region(), provider)
	channel, err := notify.NewChannel(notify.Config{
		NewClient:  cfg.mqttClientFactory(presigner),
		Topics:     topic.NewBuilder(cfg.MqttOptions.TopicSuffix),
		Alerts:     loop,
		AckTimeout: cfg.MqttOptions.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init notification channel: %w", err)
	}

	deps := coordinator.Deps{
		Auth:     session,
		Tracking: trackingSession,
		History: history.NewFetcher(locationClient, history.Config{
			TrackerName: awsOpts.TrackerName,
			DeviceID:    deviceID,
			MaxPages:    cfg.TrackingOptions.MaxPages,
			Caller:      caller,
		}),
		Evaluate: geofence.NewEvaluator(locationClient, caller),
		Lister:   geofence.NewLister(locationClient, caller),
		Channel:  channel,
		View:     loop,
		Flags:    store,
	}

	var batches *archive.Archive
	if cfg.S3Options.Enabled {
		batches, err = archive.NewMinIO(cfg.S3Options)
		if err != nil {
			return nil, fmt.Errorf("failed to init history archive: %w", err)
		}
		deps.Archiver = batches
	}

	coord, err := coordinator.New(coordinator.Config{
		PoolID:        strings.TrimSpace(awsOpts.IdentityPoolID),
		CollectionArn: strings.TrimSpace(awsOpts.GeofenceCollectionArn),
		Missing:       missing,
	}, deps)
	if err != nil {
		return nil, err
	}

	srvDeps := server.Deps{
		Controller: coord,
		Filters:    trackingSession,
		View:       loop,
	}
	if geocoder := cfg.newGeocoder(awsCfg, caller); geocoder != nil {
		srvDeps.Geocoder = geocoder
	}

	var srv *server.Server
	if cfg.HttpOptions.Addr != "" {
		srv = server.NewServer(cfg.HttpOptions, srvDeps)
	}

	var console *ui.Console
	if cfg.Console != nil {
		console = ui.NewConsole(cfg.Console)
	}

	return &Agent{
		deviceID:     deviceID,
		coordinator:  coord,
		tracking:     trackingSession,
		flags:        store,
		loop:         loop,
		console:      console,
		server:       srv,
		archive:      batches,
		tickInterval: cfg.TrackingOptions.TickInterval,
		autoStart:    cfg.TrackingOptions.AutoStart,
	}, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithLogger(awslog.New(log.WithName("aws"))),
		awsconfig.WithClientLogMode(aws.LogRetries),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}

func (cfg *Config) positionSource() (core.PositionSource, error) {
	o := cfg.TrackingOptions
	if !o.LocationPermission {
		return source.Denied{}, nil
	}

	points, err := source.ParsePositions(o.Positions)
	if err != nil {
		return nil, err
	}
	if o.Source == options.SourceStatic {
		return source.NewStatic(points[0], o.SourceInterval)
	}
	return source.NewRoute(points, o.SourceInterval)
}

// mqttClientFactory connects through the presigned IoT websocket unless a
// broker override is configured.
func (cfg *Config) mqttClientFactory(presigner *awsiot.Presigner) notify.ClientFactory {
	return func(clientID string) (mqtt.Client, error) {
		mc := cfg.MqttOptions.ToClientConfig(clientID)
		if mc.BrokerURL == "" {
			if presigner.Endpoint == "" {
				return nil, fmt.Errorf("iot endpoint: %w", core.ErrConfiguration)
			}
			dialer := &awsiot.Dialer{Presigner: presigner}
			mc.BrokerURL = presigner.BrokerURL().String()
			mc.Dial = dialer.Dial
		}
		return mqtt.NewClient(mc)
	}
}

func (cfg *Config) newGeocoder(awsCfg aws.Config, caller *awscall.Caller) server.Geocoder {
	o := cfg.AwsOptions
	if strings.TrimSpace(o.APIKey) == "" {
		log.Info("No api key configured, reverse geocoding disabled")
		return nil
	}
	region := o.APIKeyRegion
	if region == "" {
		region = o.Region()
	}
	g, err := geocode.New(geocode.NewClient(awsCfg, region), o.APIKey, caller)
	if err != nil {
		log.Error(err, "Reverse geocoding disabled")
		return nil
	}
	return g
}
