// Package main is the entry point for the Candela server.
// Candela is the backend for a small candle shop: accounts, catalog,
// reference-safe deletion and media storage behind one HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/auth"
	memorycache "github.com/candleworks/candela/internal/cache/memory"
	rediscache "github.com/candleworks/candela/internal/cache/redis"
	"github.com/candleworks/candela/internal/config"
	"github.com/candleworks/candela/internal/handler"
	"github.com/candleworks/candela/internal/lock"
	"github.com/candleworks/candela/internal/metrics"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/repository/postgres"
	"github.com/candleworks/candela/internal/repository/sqlite"
	"github.com/candleworks/candela/internal/service"
	"github.com/candleworks/candela/internal/storage"
	"github.com/candleworks/candela/internal/token"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// repos bundles the per-driver repository implementations.
type repos struct {
	users      repository.UserRepository
	candles    repository.CandleRepository
	categories repository.CategoryRepository
	references repository.ReferenceRepository
	close      func() error
}

func main() {
	cfg := config.MustLoad(os.Getenv("CANDELA_CONFIG"))
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting candela server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := buildRepos(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.close()

	media, err := buildStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	var (
		cache  repository.Cache
		locker lock.Locker
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		defer client.Close()
		cache = rediscache.NewCache(client)
		locker = lock.NewRedisLocker(client)
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using redis cache and locks")
	} else {
		memCache := memorycache.NewCache()
		defer memCache.Stop()
		cache = memCache
		locker = lock.NewMemoryLocker()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	tokens := token.NewService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	authenticator := auth.NewAuthenticator(tokens, r.users, cache, logger)

	authService := service.NewAuthService(r.users, tokens, cfg.Auth.AdminAPIKey, logger)
	userService := service.NewUserService(r.users, logger)
	catalogService := service.NewCatalogService(r.candles, r.categories, media, logger)
	deletionService := service.NewDeletionService(r.candles, r.references, nilIfNoMetrics(m), logger)

	gc := service.NewMediaGC(r.candles, media, locker, nilGCIfNoMetrics(m), logger, service.GCConfig{
		Enabled:     cfg.GC.Enabled,
		Interval:    cfg.GC.Interval,
		GracePeriod: cfg.GC.GracePeriod,
		BatchSize:   cfg.GC.BatchSize,
		DryRun:      cfg.GC.DryRun,
	})
	if cfg.GC.Enabled {
		gc.Start()
		defer gc.Stop()
	}

	var middlewares []func(http.Handler) http.Handler
	var metricsHandler http.Handler
	if m != nil {
		middlewares = append(middlewares, m.Middleware)
		metricsHandler = m.Handler()
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:     handler.NewAuthHandler(authService, userService, authenticator, nilLoginIfNoMetrics(m), logger),
		CatalogHandler:  handler.NewCatalogHandler(catalogService, logger),
		DeletionHandler: handler.NewDeletionHandler(deletionService, logger),
		Authenticator:   authenticator,
		WriteAPIKey:     cfg.Auth.WriteAPIKey,
		MetricsHandler:  metricsHandler,
		Middleware:      middlewares,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildRepos opens the configured database, runs pending migrations and
// wires the repositories.
func buildRepos(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repos, error) {
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return &repos{
			users:      sqlite.NewUserRepository(db),
			candles:    sqlite.NewCandleRepository(db),
			categories: sqlite.NewCategoryRepository(db),
			references: sqlite.NewReferenceRepository(db),
			close:      db.Close,
		}, nil
	}

	db, err := postgres.NewDB(ctx, postgresConfig(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &repos{
		users:      postgres.NewUserRepository(db),
		candles:    postgres.NewCandleRepository(db),
		categories: postgres.NewCategoryRepository(db),
		references: postgres.NewReferenceRepository(db),
		close:      db.Close,
	}, nil
}

func buildStorage(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Config{
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		}, logger)
	default:
		return storage.NewFilesystemBackend(cfg.DataDir, logger)
	}
}

func sqliteConfig(cfg config.DatabaseConfig) sqlite.Config {
	sc := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sc.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sc.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		sc.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		sc.SynchronousMode = cfg.SynchronousMode
	}
	return sc
}

func postgresConfig(cfg config.DatabaseConfig) postgres.Config {
	pc := postgres.DefaultConfig()
	pc.Host = cfg.Host
	pc.Port = cfg.Port
	pc.User = cfg.User
	pc.Password = cfg.Password
	pc.Database = cfg.Database
	pc.SSLMode = cfg.SSLMode
	if cfg.MaxOpenConns > 0 {
		pc.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pc.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}
	return pc
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// The metrics interfaces are nil-safe, but a typed nil inside a non-nil
// interface isn't nil anymore. Convert explicitly.
func nilIfNoMetrics(m *metrics.Metrics) service.DeletionMetrics {
	if m == nil {
		return nil
	}
	return m
}

func nilGCIfNoMetrics(m *metrics.Metrics) service.GCMetrics {
	if m == nil {
		return nil
	}
	return m
}

func nilLoginIfNoMetrics(m *metrics.Metrics) handler.LoginMetrics {
	if m == nil {
		return nil
	}
	return m
}
