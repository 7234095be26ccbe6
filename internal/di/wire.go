//go:build wireinject
// +build wireinject

package di

import (
	"ToneFX/pkg/config"
	"ToneFX/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideRegistry,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideModelClient,
		ProvideAPICache,

		// Repositories
		ProvideEventSource,
		ProvideQuoteSource,
		ProvideAggregateStore,
		ProvideDatasetStore,
		ProvideFeatureStore,
		ProvideSignalPublisher,
		ProvideRegressor,
		ProvideScaler,

		// Use cases
		ProvideDayAggregator,
		ProvideCollector,
		ProvidePriceService,
		ProvideDatasetBuilder,
		ProvideSignalBuilder,

		// HTTP surface
		ProvideWSHub,
		ProvideResearchHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
