package app

import (
	"fmt"
	"os"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/geotrack/cmd/geotrack-agent/app/options"
	"github.com/autopeer-io/geotrack/pkg/app"
	"github.com/autopeer-io/geotrack/pkg/log"
)

const (
	commandName = "geotrack-agent"
	commandDesc = `The geotrack agent reports this device's position to an Amazon Location
tracker, periodically draws its recent position history, evaluates it against a
geofence collection and raises an alert for every geofence enter or exit event
pushed over AWS IoT.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	application := app.NewApp(
		commandName,
		"Launch a geotrack tracking agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer func() { _ = log.Sync() }()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if opts.Console {
			cfg.Console = os.Stdout
		}

		agent, err := cfg.NewAgent(ctx)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		opts.OnReload(agent.ApplyFilters)

		return agent.Run(ctx)
	}
}
