// Package main is the entry point for the catalog console.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	catalog "github.com/kart-io/catalog-console/internal/catalog"
)

func main() {
	catalog.NewApp().Run()
}
