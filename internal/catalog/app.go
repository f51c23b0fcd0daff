// Package catalog provides the catalog console application.
package catalog

import (
	"github.com/kart-io/catalog-console/pkg/infra/app"
)

const (
	appName        = "catalog-console"
	appDescription = `Catalog Console

A management console for the content catalog service.

It provides:
  - Project listing, creation and lookup
  - Artifact search in LIKE, VECTOR and HYBRID modes
  - Artifact creation, DRAFT editing, approval and deprecation
  - Truncated content reconciliation with automatic full load
  - Project reindexing through a bounded worker pool
  - An in-memory catalog service for local development`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	return newApp(NewOptions())
}

func newApp(opts *Options) *app.App {
	return app.NewApp(
		app.WithName(appName),
		app.WithShortDescription("Catalog service management console"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithCommands(newCommands(opts)...),
		app.WithSilence(),
	)
}
