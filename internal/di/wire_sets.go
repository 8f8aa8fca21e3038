// Package di wires the application together with Wire provider sets.
package di

import (
	"github.com/google/wire"
)

// SuperSet combines all provider sets for the complete application.
var SuperSet = wire.NewSet(
	ObservabilityProviders,
	InfrastructureProviders,
	ApplicationProviders,
	InterfaceProviders,
	wire.Struct(new(Container), "Config", "Logging", "Metrics", "Tracing", "Cache", "Repository", "Service", "Handler"),
)

// ObservabilityProviders provides logging, metrics and tracing.
var ObservabilityProviders = wire.NewSet(
	provideLogging,
	provideLogger,
	provideMetrics,
	provideTracerProvider,
	provideTracer,
)

// InfrastructureProviders provides the cache backend and graph store.
var InfrastructureProviders = wire.NewSet(
	provideCacheStore,
	provideGraphRepository,
	provideKeys,
	provideTTLCalculator,
)

var ApplicationProviders = wire.NewSet(
	provideCachePolicy,
	provideGraphService,
)

var InterfaceProviders = wire.NewSet(
	provideRouter,
)
