package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fieldbook/videostats-gateway/external/bookingapi"
	"github.com/fieldbook/videostats-gateway/internal/config"
	"github.com/fieldbook/videostats-gateway/internal/domain/rawdata"
	"github.com/fieldbook/videostats-gateway/internal/infrastructure/repository/memory"
	"github.com/fieldbook/videostats-gateway/internal/infrastructure/repository/postgres"
	s3repo "github.com/fieldbook/videostats-gateway/internal/infrastructure/repository/s3"
	"github.com/fieldbook/videostats-gateway/internal/interfaces/httpapi"
	"github.com/fieldbook/videostats-gateway/internal/platform/cache"
	"github.com/fieldbook/videostats-gateway/internal/platform/logging"
	"github.com/fieldbook/videostats-gateway/internal/usecase"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

type closer func() error

// NewBackendClient builds the instrumented booking backend client shared by the
// server and the CLI.
func NewBackendClient(cfg config.Config, logger *logging.Logger) *bookingapi.Client {
	return bookingapi.NewClient(bookingapi.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.BackendTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:           cfg.BackendBaseURL,
		Timeout:           cfg.BackendTimeout,
		MaxRetries:        cfg.BackendMaxRetries,
		RequestsPerSecond: cfg.BackendRPS,
		Logger:            logger,
		CircuitBreaker:    cfg.BackendCircuit,
	})
}

// NewHTTPServer wires the gateway. The returned func releases cache and archive
// connections and must be called after the server stops.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	var closers []closer
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	statsCache, cacheCloser, err := newStatsCache(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cacheCloser != nil {
		closers = append(closers, cacheCloser)
	}

	archive, archiveCloser, err := newArchive(ctx, cfg, logger)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	if archiveCloser != nil {
		closers = append(closers, archiveCloser)
	}

	backend := NewBackendClient(cfg, logger)
	var cacheIface usecase.StatsCache
	if statsCache != nil {
		cacheIface = statsCache
	}
	statsService := usecase.NewVideoStatsService(backend, cacheIface, archive, logger, cfg.BackendFanoutWorkers)

	captureBytes := 0
	if cfg.UptraceEnabled && cfg.UptraceCaptureRequestBody {
		captureBytes = cfg.UptraceRequestBodyMaxBytes
	}

	handler := httpapi.NewHandler(statsService, logger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		Logger:                  logger,
		SwaggerEnabled:          cfg.SwaggerEnabled,
		CORSAllowedOrigins:      cfg.CORSAllowedOrigins,
		RateLimitEnabled:        cfg.RateLimitEnabled,
		RateLimitRPS:            cfg.RateLimitRPS,
		RateLimitBurst:          cfg.RateLimitBurst,
		TrustedProxies:          cfg.TrustedProxies,
		CaptureRequestBodyBytes: captureBytes,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, cleanup, nil
}

func newStatsCache(ctx context.Context, cfg config.Config, logger *logging.Logger) (*cache.Loader, closer, error) {
	if !cfg.CacheEnabled {
		logger.Info("video stats cache disabled", "reason", "CACHE_ENABLED=false")
		return nil, nil, nil
	}

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build redis cache: %w", err)
		}
		logger.Info("video stats cache enabled", "backend", cfg.CacheBackend, "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return cache.NewLoader(store, cfg.CacheTTL), store.Close, nil
	default:
		logger.Info("video stats cache enabled", "backend", config.CacheBackendMemory, "ttl", cfg.CacheTTL)
		return cache.NewLoader(cache.NewMemoryStore(), cfg.CacheTTL), nil, nil
	}
}

func newArchive(ctx context.Context, cfg config.Config, logger *logging.Logger) (rawdata.Repository, closer, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveBackendMemory:
		logger.Info("raw payload archive enabled", "backend", cfg.ArchiveBackend)
		return memory.NewRawDataRepository(), nil, nil
	case config.ArchiveBackendPostgres:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("raw payload archive enabled", "backend", cfg.ArchiveBackend, "db_name", dbNameFromURL(cfg.DBURL))
		return postgres.NewRawDataRepository(db), db.Close, nil
	case config.ArchiveBackendS3:
		repo, err := s3repo.NewRawDataRepository(ctx, s3repo.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build s3 archive: %w", err)
		}
		logger.Info("raw payload archive enabled", "backend", cfg.ArchiveBackend, "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return repo, nil, nil
	default:
		logger.Info("raw payload archive disabled", "reason", "ARCHIVE_BACKEND=none")
		return nil, nil, nil
	}
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.ServiceName),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
