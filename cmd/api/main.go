package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"safari_booking/internal/adapters/backend"
	server "safari_booking/internal/adapters/http_server"
	"safari_booking/internal/adapters/observability"
	redisad "safari_booking/internal/adapters/redis"
	"safari_booking/internal/app"
	"safari_booking/internal/shared"
	mysqlrepo "safari_booking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// cache is best-effort; the services fall through to MySQL on errors
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, continuing without warm cache")
	}
	cancel()

	// deps
	repo := mysqlrepo.New(db)
	avail := app.NewAvailabilityService(repo, cache, cfg.CacheTTL, cfg.ScanDays)
	upstream, err := backend.New(cfg.BackendBase, cfg.BackendKey, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("backend client")
	}
	cancellations := app.NewCancellationService(repo, repo, avail, nil).WithUpstream(upstream)

	// http
	srv := server.New(cfg.HTTPTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Avail: avail, Cancel: cancellations, Now: time.Now})

	log.Info().Str("addr", cfg.HTTPAddr).Int("scan_days", cfg.ScanDays).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
