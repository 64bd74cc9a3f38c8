/*
Package dsl provides a Go DSL (Domain Specific Language) for describing arbor trees.

A tree is a map node with nested layers, sources, features, geometries and styles.
Describing it as data lets the same tree come from Go code, from a YAML file or from
a test fixture, and be mounted at once with App.Mount.

Example usage:

	package main

	import (
		"context"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		places := b.Map("map").Layer("places").Source("places-source")
		places.Feature("home").
			Prop("properties", map[string]any{"name": "Home"}).
			Geometry("Point", []float64{-46.63, -23.55})

		app, _ := arbor.New()
		_, _ = app.Mount(context.Background(), b.Build()...)
	}
*/
package dsl
