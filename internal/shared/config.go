package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	HTTPTimeout time.Duration
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	BackendBase string
	BackendKey  string
	BackendRPS  int

	SyncWorkers int
	PropertyIDs []string
	ScanDays    int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		HTTPTimeout: time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/safari?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		BackendBase: env("BACKEND_BASE_URL", "http://localhost:3000/api"),
		BackendKey:  env("BACKEND_API_KEY", ""),
		BackendRPS:  atoi("BACKEND_RPS", 5),
		SyncWorkers: atoi("SYNC_WORKERS", 8),
		PropertyIDs: splitList(os.Getenv("SYNC_PROPERTY_IDS")),
		ScanDays:    atoi("AVAILABILITY_SCAN_DAYS", 730),
	}
	if c.SyncWorkers < 1 {
		c.SyncWorkers = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// splitList parses "a, b,,c" into [a b c], dropping duplicates.
func splitList(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
