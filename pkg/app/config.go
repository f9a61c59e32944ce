package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/geotrack/pkg/log"
)

const configFlagName = "config"

var cfgFile string

func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile, "Read configuration from the specified file, support JSON, TOML, YAML, HCL, or Java properties formats.")

	viper.SetEnvPrefix(envPrefix(basename))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// envPrefix turns a binary name into the environment variable prefix,
// e.g. geotrack-agent -> GEOTRACK.
func envPrefix(basename string) string {
	name, _, _ := strings.Cut(basename, "-")
	return strings.ToUpper(name)
}

// loadConfig reads the config file, if one was given, into viper.
func loadConfig(basename string) error {
	if cfgFile == "" {
		return nil
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %q: %w", cfgFile, err)
	}
	fmt.Fprintf(os.Stderr, "%s: using config file %s\n", basename, viper.ConfigFileUsed())
	return nil
}

// watchConfig re-decodes opts whenever the config file changes.
func watchConfig(opts CliOptions) {
	if cfgFile == "" {
		return
	}
	r, ok := opts.(ReloadableOptions)
	if !ok {
		return
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := viper.Unmarshal(opts); err != nil {
			log.Error(err, "Failed to reload configuration", "file", e.Name)
			return
		}
		if err := opts.Validate(); err != nil {
			log.Error(err, "Reloaded configuration is invalid, ignoring", "file", e.Name)
			return
		}
		log.Info("Configuration reloaded", "file", e.Name)
		r.Reload()
	})
	viper.WatchConfig()
}
