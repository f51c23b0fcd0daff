// Package catalogopts provides options for the catalog service client.
package catalogopts

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-console/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains catalog service client configuration.
type Options struct {
	// BaseURL is the catalog service origin, e.g. http://localhost:8080.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIPrefix is the path all catalog endpoints are mounted under.
	APIPrefix string `json:"api-prefix" mapstructure:"api-prefix"`

	// Token is sent as a bearer token when set.
	Token string `json:"token" mapstructure:"token"`

	// MaxContentLength caps artifact content in responses. 0 sends no cap.
	MaxContentLength int `json:"max-content-length" mapstructure:"max-content-length"`

	// MetricsAddr serves Prometheus metrics while a command runs. Empty disables it.
	MetricsAddr string `json:"metrics-addr" mapstructure:"metrics-addr"`

	// ReindexConcurrency bounds concurrent project reindex requests.
	ReindexConcurrency int `json:"reindex-concurrency" mapstructure:"reindex-concurrency"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:            "http://localhost:8080",
		APIPrefix:          "/api",
		MaxContentLength:   4000,
		ReindexConcurrency: 4,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"catalog.base-url", o.BaseURL, "Catalog service base URL.")
	fs.StringVar(&o.APIPrefix, options.Join(prefixes...)+"catalog.api-prefix", o.APIPrefix, "Path prefix of the catalog API.")
	fs.StringVar(&o.Token, options.Join(prefixes...)+"catalog.token", o.Token, "Bearer token for the catalog service.")
	fs.IntVar(&o.MaxContentLength, options.Join(prefixes...)+"catalog.max-content-length", o.MaxContentLength,
		"Default maxContentLength for artifact responses (presets 4000, 10000, 50000; 0 for no cap).")
	fs.StringVar(&o.MetricsAddr, options.Join(prefixes...)+"catalog.metrics-addr", o.MetricsAddr,
		"Address to serve Prometheus metrics on while a command runs.")
	fs.IntVar(&o.ReindexConcurrency, options.Join(prefixes...)+"catalog.reindex-concurrency", o.ReindexConcurrency,
		"Maximum number of projects reindexed concurrently.")
}

// Complete normalizes the base URL and API prefix.
func (o *Options) Complete() error {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	prefix := strings.Trim(strings.TrimSpace(o.APIPrefix), "/")
	if prefix == "" {
		o.APIPrefix = ""
	} else {
		o.APIPrefix = "/" + prefix
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	u, err := url.Parse(o.BaseURL)
	switch {
	case o.BaseURL == "":
		errs = append(errs, fmt.Errorf("catalog base-url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("catalog base-url is invalid: %w", err))
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		errs = append(errs, fmt.Errorf("catalog base-url must be an absolute http(s) URL, got %q", o.BaseURL))
	}
	if o.MaxContentLength < 0 {
		errs = append(errs, fmt.Errorf("catalog max-content-length must not be negative"))
	}
	if o.ReindexConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("catalog reindex-concurrency must be positive"))
	}
	return errs
}

// Endpoint returns the URL all catalog API paths are relative to.
func (o *Options) Endpoint() string {
	return o.BaseURL + o.APIPrefix
}
