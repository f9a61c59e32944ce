package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// CliOptions abstracts the options a command reads from flags and config.
type CliOptions interface {
	// Flags returns the option groups, each bound to its own flag set.
	Flags() cliflag.NamedFlagSets

	// Validate checks the options after they have been completed.
	Validate() error
}

// NamedFlagSetOptions is implemented by options that also need a completion step.
type NamedFlagSetOptions interface {
	CliOptions

	// Complete fills in defaults that depend on other options.
	Complete() error
}

// ReloadableOptions may be implemented by options that react to config file changes.
type ReloadableOptions interface {
	// Reload is called after viper re-read the config file.
	Reload()
}
