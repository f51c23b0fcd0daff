package catalog

import (
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	catalogopts "github.com/kart-io/catalog-console/pkg/options/catalog"
	logopts "github.com/kart-io/catalog-console/pkg/options/logger"
	mockopts "github.com/kart-io/catalog-console/pkg/options/mockserver"
	tracingopts "github.com/kart-io/catalog-console/pkg/options/tracing"
)

// Options contains all console options.
type Options struct {
	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Catalog contains catalog service client configuration.
	Catalog *catalogopts.Options `json:"catalog" mapstructure:"catalog"`

	// Mock contains mock catalog server configuration.
	Mock *mockopts.Options `json:"mock" mapstructure:"mock"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing *tracingopts.Options `json:"tracing" mapstructure:"tracing"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Log:     logopts.NewOptions(),
		Catalog: catalogopts.NewOptions(),
		Mock:    mockopts.NewOptions(),
		Tracing: tracingopts.NewOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Catalog.AddFlags(fs)
	o.Mock.AddFlags(fs)
	o.Tracing.AddFlags(fs)
}

// Complete completes the options.
func (o *Options) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Tracing.Complete(); err != nil {
		return err
	}
	return o.Catalog.Complete()
}

// Validate validates the options.
func (o *Options) Validate() error {
	var errs []error
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Catalog.Validate()...)
	errs = append(errs, o.Mock.Validate()...)
	errs = append(errs, o.Tracing.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// maxContentLength returns the configured default cap, nil for no cap.
func (o *Options) maxContentLength() *int {
	if o.Catalog.MaxContentLength <= 0 {
		return nil
	}
	n := o.Catalog.MaxContentLength
	return &n
}
