package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_pms/internal/adapters/observability"
	redisad "hotel_pms/internal/adapters/redis"
	"hotel_pms/internal/adapters/store"
	"hotel_pms/internal/app"
	"hotel_pms/internal/scheduler"
	"hotel_pms/internal/shared"
	mysqlrepo "hotel_pms/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncer")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	log.Info().
		Str("base", cfg.StoreBase).
		Int("workers", cfg.SyncWorkers).
		Str("cron", cfg.SyncCron).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	if err := mysqlrepo.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	repo := mysqlrepo.New(db)
	client, err := store.New(cfg.StoreBase, cfg.StoreKey, cfg.StoreRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	svc := app.NewSyncService(client, repo, repo, cache, cfg.SyncWorkers).WithClock(cfg.Now)
	r := &runner{svc: svc}

	if cfg.SyncCron == "" {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := r.run(ctx); err != nil {
			log.Error().Err(err).Msg("sync finished with errors")
			os.Exit(1)
		}
		return
	}

	sched, err := scheduler.New(cfg.Location)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init failed")
	}
	job, err := sched.AddJob("snapshot-sync", cfg.SyncCron, func(ctx context.Context) {
		if err := r.run(ctx); err != nil {
			log.Error().Err(err).Msg("sync finished with errors")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("register sync job failed")
	}
	sched.Start()
	// first pull right away, then on schedule
	if err := job.RunNow(); err != nil {
		log.Warn().Err(err).Msg("initial sync could not be queued")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler stop failed")
	}
	log.Info().Msg("syncer stopped")
}

// runner remembers the last successful pull so later runs are incremental.
type runner struct {
	svc       *app.SyncService
	lastSince *time.Time
}

func (r *runner) run(ctx context.Context) error {
	started := time.Now().UTC()
	st, err := r.svc.Run(ctx, r.lastSince)

	observability.ObserveSync("property", st.Properties)
	observability.ObserveSync("room_type", st.RoomTypes)
	observability.ObserveSync("booking", st.Bookings)
	log.Info().
		Int("properties", st.Properties).
		Int("room_types", st.RoomTypes).
		Int("bookings", st.Bookings).
		Int("skipped", st.Skipped).
		Dur("took", time.Since(started)).
		Msg("sync completed")

	if err == nil {
		r.lastSince = &started
	}
	return err
}
