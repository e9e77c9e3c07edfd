package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"safari_booking/internal/adapters/backend"
	"safari_booking/internal/adapters/observability"
	redisad "safari_booking/internal/adapters/redis"
	"safari_booking/internal/app"
	"safari_booking/internal/shared"
	mysqlrepo "safari_booking/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncer", cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("base", cfg.BackendBase).
		Int("workers", cfg.SyncWorkers).
		Int("properties", len(cfg.PropertyIDs)).
		Msg("syncer starting")
	if len(cfg.PropertyIDs) == 0 {
		log.Fatal().Msg("SYNC_PROPERTY_IDS is empty")
	}
	if cfg.BackendKey == "" {
		log.Warn().Msg("BACKEND_API_KEY is empty")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := backend.New(cfg.BackendBase, cfg.BackendKey, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	avail := app.NewAvailabilityService(repo, cache, cfg.CacheTTL, cfg.ScanDays)
	syncer := app.NewSyncService(client, repo, avail)

	sem := semaphore.NewWeighted(int64(cfg.SyncWorkers))
	var wg sync.WaitGroup
	var failed, stored atomic.Int64

	for _, id := range cfg.PropertyIDs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("sync interrupted")
			break
		}

		wg.Add(1)
		go func(propertyID string) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := syncer.SyncProperty(ctx, propertyID)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("property", propertyID).Err(err).Msg("sync failed")
				return
			}
			stored.Add(int64(n))
			log.Info().Str("property", propertyID).Int("bookings", n).Msg("sync ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int64("bookings", stored.Load()).Int64("failed", failed.Load()).Msg("sync completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
