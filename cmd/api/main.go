package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/db"
	httpx "github.com/zeitwerk/timeclock/internal/http"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
	"github.com/zeitwerk/timeclock/internal/observability"
	"github.com/zeitwerk/timeclock/internal/redisclient"
)

func main() {
	// local development convenience; a missing .env is fine
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing, only when an OTLP endpoint is configured
	if cfg.OtelEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "timeclock", cfg.Env, cfg.OtelEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(3 * time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	err = db.Migrate(cfg.DBURL)

	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// explicit, logged bootstrap step; only runs when configured
	seedCtx, seedCancel := config.WithTimeout(5 * time.Second)
	seeded, err := db.EnsureAdminUser(seedCtx, pool, cfg)
	seedCancel()

	if err != nil {
		log.Error("admin seeding failed", "err", err)
		os.Exit(1)
	}

	if seeded {
		log.Info("default admin account seeded", "email", cfg.AdminEmail)
	}

	var loginLimiter middlewares.Limiter = middlewares.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		defer rdb.Close()

		pingCtx, pingCancel := config.WithTimeout(2 * time.Second)
		err = rdb.Ping(pingCtx)
		pingCancel()

		if err != nil {
			log.Error("redis connection failed", "err", err)
			os.Exit(1)
		}

		loginLimiter = middlewares.NewRedisLimiter(rdb.Raw(), cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	router := httpx.NewRouter(cfg, log, pool, prom, registry, loginLimiter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
