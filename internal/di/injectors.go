//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"rad/internal"
	"rad/internal/controllers"
	"rad/internal/event"
	"rad/internal/providers"
	"rad/internal/services"
	"rad/internal/spam"
	"rad/internal/statistic"
	"rad/internal/storage"
	"rad/internal/structures"
	"rad/internal/writequeue"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewCacheProvider,
		providers.NewMetricsProvider,

		storage.NewMongoStore,
		wire.Bind(new(storage.Store), new(*storage.Mongo)),
		storage.NewCachedStore,
		wire.Bind(new(event.Store), new(storage.Gateway)),

		ProvideSink,
		ProvideTracker,
		ProvideNotifier,

		spam.NewDetector,
		event.NewManager,
		writequeue.NewQueue,

		services.NewStockEligibility,
		wire.Bind(new(services.EligibilityChecker), new(*services.StockEligibility)),
		services.NewStockRewarder,
		wire.Bind(new(services.Rewarder), new(*services.StockRewarder)),
		services.NewPipelineService,

		statistic.NewZstdCompressor,
		statistic.NewArchiver,
		statistic.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		controllers.NewIngestController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
