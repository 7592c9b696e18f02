package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"wordvec/internal/app"
	"wordvec/internal/cache"
	"wordvec/internal/httputil"
	"wordvec/internal/metrics"
	"wordvec/internal/model"
	"wordvec/internal/queue"
	"wordvec/internal/shutdown"
)

const defaultTopK = 10

type convertRequest struct {
	Words []string `json:"words" validate:"required,min=1,max=10000,dive,required,max=256"`
}

type convertResponse struct {
	Vectors map[string]model.Vector `json:"vectors"`
}

type similarityRequest struct {
	A string `json:"a" validate:"required,max=256"`
	B string `json:"b" validate:"required,max=256"`
}

type neighborsRequest struct {
	Positive []string `json:"positive" validate:"required,min=1,max=16,dive,required,max=256"`
	Negative []string `json:"negative" validate:"omitempty,max=16,dive,required,max=256"`
	TopK     int      `json:"top_k" validate:"omitempty,min=1,max=1000"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	if err := run(deps); err != nil {
		deps.Log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// run serves until SIGINT/SIGTERM or a fatal server error, then drains.
func run(deps app.Deps) error {
	signals, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// the worker stops only after accepted HTTP and NATS requests finish
	natsDone := make(chan struct{})
	if deps.Queue == nil {
		close(natsDone)
	}
	coord, ctx := shutdown.New(context.Background(), deps.Log, deps.Vectors, deps.Config.ShutdownTimeout,
		shutdown.WithDrain(drainListeners(srv, natsDone)))
	go coord.Watch(signals)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Worker.Run()
		return nil
	})
	g.Go(func() error {
		deps.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		coord.Trigger("stopping")
		return nil
	})
	if deps.Queue != nil {
		g.Go(func() error {
			defer close(natsDone)
			return deps.Queue.Respond(gctx, deps.Config.NATSSubject, natsResolveHandler(deps))
		})
	}

	err := g.Wait()
	if deps.Queue != nil {
		if cerr := deps.Queue.Close(); cerr != nil {
			deps.Log.Warn("failed to close queue", "err", cerr)
		}
	}
	if cerr := deps.Cache.Close(); cerr != nil {
		deps.Log.Warn("failed to close cache", "err", cerr)
	}
	deps.Log.Info("server stopped")
	return err
}

// drainListeners waits for in-flight HTTP requests and for the NATS
// responder to finish.
func drainListeners(srv *http.Server, natsDone <-chan struct{}) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		select {
		case <-natsDone:
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		}
		return err
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)
	if deps.Limiter != nil {
		r.Use(httputil.RateLimit(deps.Limiter))
	}

	convert := convertHandler(deps)
	r.Get("/convert", convert)
	r.Post("/convert", convert)
	r.Post("/api/convert", convert)
	r.Post("/api/similarity", similarityHandler(deps))
	r.Post("/api/neighbors", neighborsHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))
	}
	return r
}

// convertHandler resolves a batch of words. Absent words map to null.
// GET with a body is accepted because that is what existing clients send.
func convertHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req convertRequest
		if !httputil.DecodeJSON(deps.Log, w, r, deps.Config.MaxBodySize, &req) {
			return
		}
		vectors := deps.Vectors.Resolve(r.Context(), req.Words)
		httputil.WriteJSON(w, http.StatusOK, convertResponse{Vectors: vectors})
	}
}

func similarityHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req similarityRequest
		if !httputil.DecodeJSON(deps.Log, w, r, deps.Config.MaxBodySize, &req) {
			return
		}
		resp, err := deps.Vectors.Similarity(r.Context(), req.A, req.B)
		if err != nil {
			httputil.Fail(deps.Log, w, "model unavailable", err, http.StatusServiceUnavailable)
			return
		}
		var score *float32
		if resp.Found && !math.IsNaN(float64(resp.Score)) {
			score = &resp.Score
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"a":          req.A,
			"b":          req.B,
			"found":      resp.Found,
			"similarity": score,
		})
	}
}

func neighborsHandler(deps app.Deps) http.HandlerFunc {
	cacheTTL := time.Duration(deps.Config.CacheTTL) * time.Second

	return func(w http.ResponseWriter, r *http.Request) {
		var req neighborsRequest
		if !httputil.DecodeJSON(deps.Log, w, r, deps.Config.MaxBodySize, &req) {
			return
		}
		if req.TopK == 0 {
			req.TopK = defaultTopK
		}
		ctx := r.Context()

		key := cache.GenerateCacheKey(deps.Config.ModelPath, req.Positive, req.Negative, req.TopK)
		if cached, err := deps.Cache.GetNeighbors(ctx, key); err != nil {
			deps.Log.Warn("cache read failed", "err", err)
		} else if cached != nil {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"neighbors": cached.Neighbors,
				"missing":   []string{},
				"cached":    true,
			})
			return
		}

		resp, err := deps.Vectors.Neighbors(ctx, req.Positive, req.Negative, req.TopK)
		if err != nil {
			httputil.Fail(deps.Log, w, "model unavailable", err, http.StatusServiceUnavailable)
			return
		}
		if !resp.Found {
			httputil.WriteJSON(w, http.StatusNotFound, map[string]any{
				"error":   "unknown words",
				"missing": resp.Missing,
			})
			return
		}

		result := &cache.NeighborResult{Neighbors: toCacheNeighbors(resp.Neighbors)}
		if err := deps.Cache.SetNeighbors(ctx, key, result, cacheTTL); err != nil {
			// Log cache write failure but don't fail the request
			deps.Log.Warn("failed to cache neighbors", "err", err)
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"neighbors": result.Neighbors,
			"missing":   []string{},
			"cached":    false,
		})
	}
}

// toCacheNeighbors drops undefined (NaN) scores, which JSON cannot carry.
// They only occur for zero-norm vectors and always rank last.
func toCacheNeighbors(ns []model.Neighbor) []cache.Neighbor {
	out := make([]cache.Neighbor, 0, len(ns))
	for _, n := range ns {
		if math.IsNaN(float64(n.Score)) {
			continue
		}
		out = append(out, cache.Neighbor{Word: n.Word, Score: n.Score})
	}
	return out
}

// natsResolveHandler answers the same payload as /convert over NATS.
func natsResolveHandler(deps app.Deps) queue.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req convertRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		return json.Marshal(convertResponse{Vectors: deps.Vectors.Resolve(ctx, req.Words)})
	}
}
