// Package worker serializes all access to a loaded model behind a single
// goroutine.
//
// The model is handed to New and is afterwards reachable only from Run, so
// the table itself needs no locking. Callers talk to the worker through a
// Client; each request carries a private reply channel, which lets any
// number of goroutines share one Client without taking turns.
package worker

import (
	"log/slog"
	"runtime"
	"time"

	"wordvec/internal/metrics"
	"wordvec/internal/model"
)

// Worker owns a model and answers requests from its Inbox one at a time.
type Worker struct {
	model   *model.Model
	inbox   *Inbox
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New takes ownership of m. The caller must not use m afterwards.
func New(m *model.Model, inbox *Inbox, log *slog.Logger, mt *metrics.Metrics) *Worker {
	if log == nil {
		log = discardLogger
	}
	return &Worker{model: m, inbox: inbox, log: log.With("component", "worker"), metrics: mt}
}

// Run answers requests until it dequeues Shutdown. Requests queued ahead of
// Shutdown are answered first; anything behind it is never answered.
// Run blocks and is meant to have a goroutine of its own.
func (w *Worker) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.inbox.close()

	w.log.Info("worker started", "words", w.model.Len(), "dim", w.model.Dim())
	for {
		req := w.inbox.receive()
		if req.Kind == KindShutdown {
			w.log.Info("worker stopping", "pending", w.inbox.len())
			return
		}

		start := time.Now()
		resp := w.handle(req)
		outcome := metrics.OutcomeNotFound
		if resp.Found {
			outcome = metrics.OutcomeFound
		}
		if !w.reply(req, resp) {
			w.log.Warn("reply dropped", "request_id", req.ID, "kind", req.Kind.String())
			outcome = metrics.OutcomeDropped
		}
		w.metrics.ObserveRequest(req.Kind.String(), outcome, time.Since(start), w.inbox.len())
	}
}

func (w *Worker) handle(req Request) Response {
	switch req.Kind {
	case KindLookup:
		v, ok := w.model.Lookup(req.Word)
		return Response{Found: ok, Vector: v}

	case KindSimilarity:
		score, ok := w.model.Cosine(req.Word, req.Other)
		return Response{Found: ok, Score: score}

	case KindNeighbors:
		query, missing := w.model.Analogy(req.Positive, req.Negative)
		if query == nil {
			return Response{Missing: missing}
		}
		exclude := make(map[string]struct{}, len(req.Positive)+len(req.Negative))
		for _, word := range req.Positive {
			exclude[word] = struct{}{}
		}
		for _, word := range req.Negative {
			exclude[word] = struct{}{}
		}
		return Response{Found: true, Vector: query, Neighbors: w.model.TopK(query, req.TopK, exclude)}

	default:
		w.log.Warn("unknown request kind", "request_id", req.ID, "kind", int(req.Kind))
		return Response{}
	}
}

// reply never blocks: every reply channel has room for exactly one answer.
// A missing or already-used channel means the peer is gone.
func (w *Worker) reply(req Request, resp Response) bool {
	select {
	case req.reply <- resp:
		return true
	default:
		return false
	}
}
