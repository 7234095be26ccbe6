package di

import (
	"context"
	"fmt"
	"time"

	"ToneFX/internal/domain/repository"
	dservice "ToneFX/internal/domain/service"
	"ToneFX/internal/handler/api"
	"ToneFX/internal/registry"
	internalrepo "ToneFX/internal/repository"
	"ToneFX/internal/service/gdelt"
	"ToneFX/internal/service/yahoo"
	"ToneFX/internal/services/model"
	"ToneFX/internal/usecase"
	pkgcache "ToneFX/pkg/cache"
	pkgch "ToneFX/pkg/clickhouse"
	"ToneFX/pkg/config"
	pkgkafka "ToneFX/pkg/kafka"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/metrics"
	"ToneFX/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRegistry returns the canonical currency universe.
func ProvideRegistry() *registry.Registry {
	return registry.Default()
}

// ProvideEventSource creates the event archive client.
func ProvideEventSource(cfg *config.Config, l *applogger.Logger) repository.EventSource {
	return gdelt.New(cfg.Archive.BaseURL, cfg.Archive.Timeout, cfg.Archive.RatePerSec, l)
}

// ProvideQuoteSource creates the daily quote client.
func ProvideQuoteSource(cfg *config.Config, l *applogger.Logger) repository.QuoteSource {
	return yahoo.New(cfg.Quotes.BaseURL, cfg.Quotes.Timeout, cfg.Quotes.CacheTTL, l)
}

// ProvideAggregateStore creates the per-day cache directory store.
func ProvideAggregateStore(cfg *config.Config) (repository.AggregateStore, error) {
	store, err := internalrepo.NewFileAggregateStore(cfg.Cache.DayDir)
	if err != nil {
		return nil, fmt.Errorf("day cache: %w", err)
	}
	return store, nil
}

// ProvideDatasetStore creates the merged dataset file store.
func ProvideDatasetStore() repository.DatasetStore {
	return internalrepo.NewFileDatasetStore()
}

// ProvideClickHouseClient creates a ClickHouse client when the backend
// asks for one; the file backend runs without it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Storage.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SentimentSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideFeatureStore creates the analytical mirror; nil when running on
// the file backend only.
func ProvideFeatureStore(chClient *pkgch.Client, l *applogger.Logger) repository.FeatureStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewCHFeatureStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer when enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher creates the backtest hand-off; nil when Kafka is
// disabled.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic, l)
}

// ProvideModelClient creates the sidecar HTTP client.
func ProvideModelClient(cfg *config.Config) *model.Client {
	return model.NewClient(cfg.Model.ServiceURL, cfg.Model.Timeout)
}

// ProvideRegressor exposes the sidecar's fit/predict surface.
func ProvideRegressor(c *model.Client) dservice.Regressor {
	return model.NewRegressor(c)
}

// ProvideScaler exposes the sidecar's scaling surface.
func ProvideScaler(c *model.Client) dservice.Scaler {
	return model.NewScaler(c)
}

// ProvideDayAggregator creates the per-day aggregation use case.
func ProvideDayAggregator(
	source repository.EventSource,
	store repository.AggregateStore,
	reg *registry.Registry,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.DayAggregator {
	return usecase.NewDayAggregator(source, store, reg, usecase.FilterParams{
		MinMentions:   cfg.Archive.MinMentions,
		MinEventCount: cfg.Archive.MinEventCount,
		RootOnly:      cfg.Archive.RootOnly,
		ToneThreshold: cfg.Archive.ToneThreshold,
	}, m, l)
}

// ProvideCollector creates the bounded fan-out collector.
func ProvideCollector(agg *usecase.DayAggregator, cfg *config.Config, l *applogger.Logger) *usecase.Collector {
	return usecase.NewCollector(agg, cfg.Pipeline.Workers, cfg.Pipeline.ProgressEvery, l)
}

// ProvidePriceService creates the FX close-price service.
func ProvidePriceService(
	quotes repository.QuoteSource,
	reg *registry.Registry,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PriceService {
	return usecase.NewPriceService(quotes, reg, cfg.Quotes.SymbolSuffix, cfg.Quotes.MaxMissingFrac, m, l)
}

// ProvideDatasetBuilder creates the dataset assembly use case.
func ProvideDatasetBuilder(
	collector *usecase.Collector,
	prices *usecase.PriceService,
	store repository.DatasetStore,
	featureStore repository.FeatureStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.DatasetBuilder {
	return usecase.NewDatasetBuilder(collector, prices, store, featureStore,
		cfg.Cache.DatasetPath, cfg.Quotes.BufferDays, m, l)
}

// ProvideSignalBuilder creates the ranking use case.
func ProvideSignalBuilder(
	scaler dservice.Scaler,
	regressor dservice.Regressor,
	reg *registry.Registry,
	publisher repository.SignalPublisher,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.SignalBuilder {
	return usecase.NewSignalBuilder(scaler, regressor, reg, publisher, cfg.Model.TopN, l)
}

// ProvideAPICache creates the response cache: layered Redis+memory when
// Redis is configured, in-process memory otherwise.
func ProvideAPICache(cfg *config.Config, l *applogger.Logger) pkgcache.Service {
	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc)
		}
		l.Warn("redis unavailable, using memory cache", applogger.Error(err))
	}
	return pkgcache.NewMemoryCache()
}

// ProvideWSHub creates the progress broadcast hub.
func ProvideWSHub(l *applogger.Logger) *api.WSHub {
	return api.NewWSHub(l)
}

// ProvideResearchHandler creates the HTTP handler surface.
func ProvideResearchHandler(
	l *applogger.Logger,
	agg *usecase.DayAggregator,
	builder *usecase.DatasetBuilder,
	signals *usecase.SignalBuilder,
	cache pkgcache.Service,
) *api.ResearchHandler {
	h := api.NewResearchHandler(l, agg, builder, signals)
	h.SetCache(cache, 5*time.Minute)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.ResearchHandler,
	hub *api.WSHub,
	collector *usecase.Collector,
	builder *usecase.DatasetBuilder,
	signals *usecase.SignalBuilder,
	publisher repository.SignalPublisher,
	featureStore repository.FeatureStore,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, handler, hub, collector, builder, signals, publisher, featureStore, chClient)
}
