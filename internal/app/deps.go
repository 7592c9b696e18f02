package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"wordvec/internal/cache"
	"wordvec/internal/config"
	"wordvec/internal/logger"
	"wordvec/internal/metrics"
	"wordvec/internal/model"
	"wordvec/internal/queue"
	"wordvec/internal/retry"
	"wordvec/internal/worker"
)

const (
	connectAttempts = 3
	connectBackoff  = 500 * time.Millisecond
)

// Deps bundles the runtime dependencies of the server.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Vectors  worker.Querier
	Worker   *worker.Worker
	Cache    cache.Cache
	Queue    queue.Queue // nil when NATS is not configured
	Limiter  *rate.Limiter
	Registry *prometheus.Registry
}

// Build loads env, config, the model, and the optional infrastructure. The
// model is handed straight to the worker; nothing else keeps a reference.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.New(reg)

	m, err := loadModel(cfg, log)
	if err != nil {
		return Deps{}, err
	}
	client, inbox := worker.NewChannel(cfg.WorkerQueueSize,
		worker.WithTimeout(cfg.LookupTimeout),
		worker.WithConcurrency(cfg.ResolveConcurrency),
		worker.WithLogger(log),
		worker.WithMetrics(mt),
	)
	w := worker.New(m, inbox, log, mt)

	c := buildCache(cfg, log)
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		log.Info("rate limiting enabled", "rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	}

	return Deps{
		Config:   cfg,
		Log:      log,
		Vectors:  client,
		Worker:   w,
		Cache:    c,
		Queue:    q,
		Limiter:  limiter,
		Registry: reg,
	}, nil
}

func loadModel(cfg config.Config, log *slog.Logger) (*model.Model, error) {
	start := time.Now()
	log.Info("loading model", "path", cfg.ModelPath)
	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	log.Info("model loaded",
		"words", m.Len(),
		"header_words", m.TotalWords(),
		"dim", m.Dim(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if m.Len() < m.TotalWords() {
		log.Warn("model file ended early; serving the records that were complete",
			"missing", m.TotalWords()-m.Len())
	}
	return m, nil
}

// buildCache never fails: an unreachable Redis degrades to no caching.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		if cfg.RedisAddr == "" {
			log.Warn("REDIS_ADDR is empty; caching disabled")
			return cache.NewNoOpCache()
		}
		var rc *cache.RedisCache
		err := retry.Do(context.Background(), connectAttempts, connectBackoff, func() error {
			var err error
			rc, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
			return err
		})
		if err != nil {
			log.Warn("redis unavailable; caching disabled", "err", err)
			return cache.NewNoOpCache()
		}
		// rankings from a previously served model would be stale
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rc.Flush(ctx); err != nil {
			log.Warn("failed to flush neighbor cache", "err", err)
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr)
		return rc
	case "noop", "":
		return cache.NewNoOpCache()
	default:
		log.Warn("unknown CACHE_PROVIDER; caching disabled", "provider", cfg.CacheProvider)
		return cache.NewNoOpCache()
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set; NATS responder disabled")
		return nil, nil
	}
	var nc *nats.Conn
	err := retry.Do(context.Background(), connectAttempts, connectBackoff, func() error {
		var err error
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("wordvec"), nats.DrainTimeout(cfg.ShutdownTimeout))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS responder", "subject", cfg.NATSSubject)
	return queue.NewNATS(log, nc, cfg.ShutdownTimeout), nil
}
