//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/internal/domain/repository"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Storage
		ProvideStore,
		wire.Bind(new(repository.TimeSeriesStore), new(*internalrepo.MemoryStore)),
		ProvideCacheBackend,
		ProvideViewCache,

		// Archive
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideArchiveRouter,
		ProvideArchivePipeline,

		// Pipeline
		ProvideQuoteSource,
		ProvideRollingWindow,
		ProvideIndicatorEngine,
		ProvideSignalEngine,
		ProvideValidationEngine,
		ProvideScheduler,

		// Read side
		usecase.NewMarketQuery,
		ProvideMarketHandler,
		ProvideHub,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
