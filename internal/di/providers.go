package di

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/domain/service"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/handler/ws"
	mid "MarketPulse/internal/middleware"
	internalrepo "MarketPulse/internal/repository"
	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/service/quote"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/services/indicators"
	"MarketPulse/internal/services/signal"
	"MarketPulse/internal/services/validation"
	"MarketPulse/internal/usecase"
	pkgcache "MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore creates the in-memory store and seeds the configured assets,
// or the default set when none are configured.
func ProvideStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.MemoryStore, error) {
	opts := []internalrepo.StoreOption{
		internalrepo.WithRetention(cfg.Store.Retention),
		internalrepo.WithStoreLogger(l),
	}
	if cfg.Store.Strict != nil {
		opts = append(opts, internalrepo.WithStrict(*cfg.Store.Strict))
	}
	store := internalrepo.NewMemoryStore(opts...)

	assets := models.DefaultAssets()
	if len(cfg.Assets) > 0 {
		assets = assets[:0]
		for _, a := range cfg.Assets {
			assets = append(assets, models.Asset{
				Symbol:   a.Symbol,
				Name:     a.Name,
				Class:    models.AssetClass(a.Class),
				Exchange: a.Exchange,
				Active:   true,
			})
		}
	}
	for _, a := range assets {
		if _, err := store.AddAsset(a); err != nil {
			return nil, fmt.Errorf("seed asset %s: %w", a.Symbol, err)
		}
	}
	return store, nil
}

func needsKafka(cfg *config.Config) bool {
	b := cfg.Archive.Backend
	return b == usecase.BackendKafka || b == usecase.BackendBoth || cfg.Log.Collector.Enabled
}

func needsClickHouse(cfg *config.Config) bool {
	b := cfg.Archive.Backend
	return b == usecase.BackendClickHouse || b == usecase.BackendBoth
}

// ProvideKafkaProducer creates a Kafka producer, or nil when nothing
// publishes to Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !needsKafka(cfg) {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithAutoCreateTopic(p.AutoCreateTopic),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the archive
// schema, or returns nil when the archive does not use ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !needsClickHouse(cfg) {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(ch.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideArchiveRouter binds the archive sinks selected by archive.backend.
func ProvideArchiveRouter(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.ArchiveRouter, error) {
	var pub repository.Publisher
	if producer != nil && (cfg.Archive.Backend == usecase.BackendKafka || cfg.Archive.Backend == usecase.BackendBoth) {
		pub = internalrepo.NewKafkaPublisher(producer, internalrepo.Topics{
			Bars:        cfg.Kafka.Topics.Bars,
			Predictions: cfg.Kafka.Topics.Predictions,
			Outcomes:    cfg.Kafka.Topics.Outcomes,
		})
	}
	var archive repository.Archive
	if ch != nil {
		archive = internalrepo.NewClickHouseArchive(ch.DB(), cfg.ClickHouse.Database, l)
	}
	return usecase.NewArchiveRouter(pub, archive, m, cfg.Archive.Backend)
}

// ProvideArchivePipeline buffers store events for the archive router.
func ProvideArchivePipeline(cfg *config.Config, router *usecase.ArchiveRouter, m repository.Metrics, l *applogger.Logger) *mid.ArchivePipeline {
	p := cfg.Pipeline
	return mid.NewArchivePipeline(router, m,
		mid.WithBufferSize(p.BufferSize),
		mid.WithBatch(p.BatchSize, p.BatchTimeout),
		mid.WithRetry(p.RetryMax, p.RetryBackoff),
		mid.WithPipelineLogger(l),
	)
}

func endpoint(p config.ProviderConfig) quote.Endpoint {
	return quote.Endpoint{BaseURL: p.BaseURL, APIKey: p.APIKey, Burst: p.Burst, Refill: p.Refill}
}

// ProvideQuoteSource routes each asset class to its upstream, with the mock
// generator behind every one of them.
func ProvideQuoteSource(cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.QuoteSource {
	client := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Providers.Timeout),
		xhttp.WithUserAgent(cfg.Providers.UserAgent),
	)
	limiter := ratelimit.New()

	router := quote.NewRouter(m).
		Register(models.ClassStock, quote.NewYahoo(endpoint(cfg.Providers.Yahoo), client, limiter)).
		Register(models.ClassForex, quote.NewAlphaVantage(endpoint(cfg.Providers.AlphaVantage), client, limiter)).
		Register(models.ClassCrypto, quote.NewCoinGecko(endpoint(cfg.Providers.CoinGecko), client, limiter))

	return quote.NewFallback(router, quote.NewMock(), l.With(applogger.String("component", "quotes")), m)
}

func ProvideRollingWindow(cfg *config.Config) *validation.RollingWindow {
	return validation.NewRollingWindow(cfg.Scheduler.AccuracyWindow)
}

func ProvideIndicatorEngine(cfg *config.Config) service.IndicatorEngine {
	return indicators.NewEngine(cfg.Scheduler.MinIndicatorHistory)
}

func ProvideSignalEngine() service.SignalEngine {
	return signal.NewEngine()
}

func ProvideValidationEngine(cfg *config.Config) service.ValidationEngine {
	return validation.NewEngine(cfg.Scheduler.PredictionMaturity)
}

// ProvideScheduler registers the four pipeline tasks at their cadences.
func ProvideScheduler(
	cfg *config.Config,
	store repository.TimeSeriesStore,
	quotes repository.QuoteSource,
	ind service.IndicatorEngine,
	sig service.SignalEngine,
	val service.ValidationEngine,
	window *validation.RollingWindow,
	events *mid.ArchivePipeline,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Scheduler {
	s := cfg.Scheduler
	return usecase.NewScheduler(l.With(applogger.String("component", "scheduler")), m).
		RunOnStart(s.RunOnStart).
		Add(usecase.NewIngestTask(store, quotes, events, m, s.QuoteTimeout), s.IngestInterval).
		Add(usecase.NewIndicatorRefreshTask(store, ind), s.IndicatorInterval).
		Add(usecase.NewPredictionTask(store, ind, sig, events, m), s.PredictionInterval).
		Add(usecase.NewValidationTask(store, val, window, events, m), s.ValidationInterval)
}

// ProvideCacheBackend returns a memory cache, layered over Redis when
// redis.enabled is set.
func ProvideCacheBackend(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(1000)), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemoryTTL(cfg.Redis.MemoryTTL)), nil
}

func ProvideViewCache(cfg *config.Config, backend pkgcache.Service, l *applogger.Logger) repository.ViewCache {
	return icache.NewViewCache(backend, cfg.Redis.ViewTTL, l)
}

func ProvideMarketHandler(cfg *config.Config, q *usecase.MarketQuery, l *applogger.Logger) *api.MarketHandler {
	rl := cfg.Server.RateLimit
	return api.NewMarketHandler(l, q, api.WithRateLimit(ratelimit.New(), rl.Capacity, rl.Refill))
}

func ProvideHub(cfg *config.Config, q *usecase.MarketQuery, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(q,
		ws.WithInterval(cfg.Server.WebSocket.Interval),
		ws.WithAllowedOrigins(cfg.Server.AllowOrigins...),
		ws.WithLogger(l.With(applogger.String("component", "ws"))),
	)
}

func ProvideHTTPServer(cfg *config.Config, h *api.MarketHandler, hub *ws.Hub, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h, hub},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.AllowOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l.With(applogger.String("component", "http"))),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sched *usecase.Scheduler,
	pipeline *mid.ArchivePipeline,
	router *usecase.ArchiveRouter,
	srv *xhttp.Server,
	hub *ws.Hub,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	cache pkgcache.Service,
) *server.App {
	app := server.New(l, sched, pipeline, srv, hub)
	app.AddCloser("archive", func() error { router.Close(); return nil })
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	app.AddCloser("cache", cache.Close)

	if cfg.Log.Collector.Enabled && producer != nil {
		c := cfg.Log.Collector
		app.WithLogCollector(&applogger.CollectionConfig{
			TimeInterval:   c.FlushInterval,
			CountThreshold: c.CountThreshold,
			Topic:          c.Topic,
			Publisher:      producer,
		})
		if router.Backend() == usecase.BackendNone || router.Backend() == usecase.BackendClickHouse {
			app.AddCloser("kafka", producer.Close)
		}
	}
	return app
}
