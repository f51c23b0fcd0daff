// Package mockopts provides options for the in-memory catalog server.
package mockopts

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-console/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains mock catalog server configuration.
type Options struct {
	// Addr is the listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Seed loads a small demo data set on start.
	Seed bool `json:"seed" mapstructure:"seed"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Addr: ":8080",
		Seed: true,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, options.Join(prefixes...)+"mock.addr", o.Addr, "Listen address of the mock catalog server.")
	fs.BoolVar(&o.Seed, options.Join(prefixes...)+"mock.seed", o.Seed, "Load demo projects and artifacts on start.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Addr == "" {
		return []error{fmt.Errorf("mock addr is required")}
	}
	return nil
}
