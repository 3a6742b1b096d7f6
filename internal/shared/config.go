package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	StoreBase   string
	StoreKey    string
	StoreRPS    int
	SyncWorkers int
	SyncCron    string // empty runs the syncer once

	CacheTTL       time.Duration
	DashboardTTL   time.Duration
	IdempotencyTTL time.Duration

	// Location is the hotel's zone; "today" is taken from it.
	Location *time.Location
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set in the process win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/pms?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		StoreBase:   env("STORE_BASE_URL", ""),
		StoreKey:    env("STORE_API_KEY", ""),
		StoreRPS:    atoi("STORE_RPS", 5),
		SyncWorkers: atoi("SYNC_WORKERS", 4),
		SyncCron:    env("SYNC_CRON", ""),

		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		DashboardTTL:   time.Duration(atoi("DASHBOARD_TTL_SECONDS", 60)) * time.Second,
		IdempotencyTTL: time.Duration(atoi("IDEMPOTENCY_TTL_SECONDS", 86400)) * time.Second,
	}

	tz := env("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn().Err(err).Str("tz", tz).Msg("unknown TIMEZONE, using UTC")
		loc = time.UTC
	}
	c.Location = loc
	return c
}

// Now is the current wall clock in the hotel's zone.
func (c Config) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}
