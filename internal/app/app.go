// Package app wires the registry together and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/url-registry/internal/adapter/auth"
	"github.com/vadimbarashkov/url-registry/internal/adapter/clock"
	"github.com/vadimbarashkov/url-registry/internal/adapter/store/memory"
	"github.com/vadimbarashkov/url-registry/internal/config"
	"github.com/vadimbarashkov/url-registry/internal/usecase"
	"github.com/vadimbarashkov/url-registry/pkg/postgres"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/url-registry/internal/adapter/delivery/http"
	pgstore "github.com/vadimbarashkov/url-registry/internal/adapter/store/postgres"
	redisstore "github.com/vadimbarashkov/url-registry/internal/adapter/store/redis"
	pkgredis "github.com/vadimbarashkov/url-registry/pkg/redis"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	ExtendTTL(ctx context.Context, key string, threshold, extendTo time.Duration) error
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the structured request logger shared by the server and the registry.
func NewLogger(cfg *config.Config) *httplog.Logger {
	return httplog.NewLogger("url-registry", httplog.Options{
		JSON:            cfg.Log.JSON,
		LogLevel:        parseLevel(cfg.Log.Level),
		Concise:         !cfg.Log.JSON,
		RequestHeaders:  false,
		TimeFieldFormat: time.RFC3339,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

// openStore connects the backend selected by cfg.Storage.Driver. The returned
// closer releases its connections and the group runs backend maintenance.
func openStore(ctx context.Context, g *errgroup.Group, cfg *config.Config, logger *slog.Logger) (store, io.Closer, error) {
	const op = "app.openStore"

	ttl := cfg.Lifetime.ExtendTo

	switch cfg.Storage.Driver {
	case config.DriverRedis:
		client, err := pkgredis.New(
			ctx,
			cfg.Redis.Addr(),
			pkgredis.WithPassword(cfg.Redis.Password),
			pkgredis.WithDB(cfg.Redis.DB),
			pkgredis.WithPoolSize(cfg.Redis.PoolSize),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}

		return redisstore.New(client, ttl, cfg.Redis.KeyPrefix), client, nil

	case config.DriverPostgres:
		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := postgres.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		s := pgstore.New(db, ttl)

		if cfg.Storage.PurgeInterval <= 0 {
			return s, db, nil
		}

		g.Go(func() error {
			purgeExpired(ctx, s, cfg.Storage.PurgeInterval, logger)
			return nil
		})

		return s, db, nil

	default:
		return memory.New(ttl), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func purgeExpired(ctx context.Context, s *pgstore.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				logger.Error("failed to purge expired entries", slog.Any("err", err))
				continue
			}

			if n > 0 {
				logger.Info("purged expired entries", slog.Int64("count", n))
			}
		}
	}
}

// Run starts the registry server and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg)

	g, ctx := errgroup.WithContext(ctx)

	s, closer, err := openStore(ctx, g, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closer.Close()

	registry := usecase.New(
		s,
		auth.NewVerifier(cfg.Auth.Secret),
		clock.NewMonotonic(),
		usecase.WithLifetime(usecase.Lifetime{
			Threshold: cfg.Lifetime.Threshold,
			ExtendTo:  cfg.Lifetime.ExtendTo,
		}),
		usecase.WithShortCodeLength(cfg.ShortCodeLength),
		usecase.WithLogger(logger.Logger),
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, registry),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		var err error

		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("storage", cfg.Storage.Driver),
		)

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
