package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration. Everything has a default except the
// optional infrastructure endpoints.
type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"3030"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxBodySize     int64         `env:"MAX_BODY_SIZE" envDefault:"16384"` // 16KB, same limit as the convert route always had
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"0"` // 0 disables limiting
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"50"`

	// Model & worker
	ModelPath          string        `env:"MODEL_PATH" envDefault:"./test_material/vectors.bin"`
	WorkerQueueSize    int           `env:"WORKER_QUEUE_SIZE" envDefault:"1024"`
	LookupTimeout      time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"5s"`
	ResolveConcurrency int           `env:"RESOLVE_CONCURRENCY" envDefault:"64"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"noop"` // "noop" or "redis"
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// NATS request/reply endpoint; disabled when NATS_URL is empty
	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"vectors.resolve"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
