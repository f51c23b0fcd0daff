// Package app defines the options contract used by the application runner.
package app

import "github.com/spf13/pflag"

// CliOptions is the interface for CLI options.
// Any options struct implementing this interface can be used with App.
type CliOptions interface {
	// AddFlags adds flags to the flagset.
	AddFlags(fs *pflag.FlagSet)
	// Validate validates the options.
	Validate() error
	// Complete completes the options with defaults.
	Complete() error
}
