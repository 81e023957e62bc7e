package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "openstays_catalog/internal/adapters/http_server"
	"openstays_catalog/internal/adapters/observability"
	redisad "openstays_catalog/internal/adapters/redis"
	"openstays_catalog/internal/app"
	"openstays_catalog/internal/domain"
	"openstays_catalog/internal/shared"
	"openstays_catalog/internal/storage/memory"
	mysqlrepo "openstays_catalog/internal/storage/mysql"
)

// backend is what the API needs from a catalog store.
type backend interface {
	domain.CatalogStore
	domain.CredentialStore
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openBackend(ctx, cfg)

	var (
		cache   domain.Cache = redisad.Noop{}
		limiter *app.RateLimiter
		ready   = map[string]server.Pinger{"database": store, "redis": nil}
	)
	if cfg.RedisAddr != "" {
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		c := redisad.NewCache(rc)
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		cache = c
		ready["redis"] = c
		if cfg.RateLimitEnabled {
			limiter = app.NewRateLimiter(redisad.NewCounters(rc), cfg.RateLimitWindow, cfg.RateLimitMax)
		}
	} else if cfg.RateLimitEnabled {
		log.Fatal().Msg("rate limiting needs redis_addr")
	}

	srv := server.New(server.Options{RequestTimeout: cfg.RequestTimeout, CORSOrigins: cfg.CORSOrigins})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Catalog: app.NewCatalogService(store, cache, cfg.CacheTTL),
		Auth:    app.NewAuthenticator(store, cfg.APIKeyPrefix),
		Limiter: limiter,
		Ready:   ready,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("backend", cfg.CatalogBackend).
			Bool("rate_limit", limiter != nil).
			Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openBackend(ctx context.Context, cfg shared.Config) backend {
	if cfg.CatalogBackend == "memory" {
		s, err := memory.Load(cfg.CatalogFixture)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogFixture).Msg("load fixture failed")
		}
		log.Info().Str("path", cfg.CatalogFixture).Msg("serving catalog from fixture")
		return s
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")
	return mysqlrepo.New(db)
}
