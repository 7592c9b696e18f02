package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wordvec/internal/metrics"
	"wordvec/internal/model"
)

const defaultConcurrency = 64

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Querier is what request handlers need from the worker.
type Querier interface {
	Resolve(ctx context.Context, words []string) map[string]model.Vector
	Similarity(ctx context.Context, a, b string) (Response, error)
	Neighbors(ctx context.Context, positive, negative []string, k int) (Response, error)
	Shutdown(ctx context.Context) error
	Alive() bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds how long a single request may wait for its reply.
// Zero means callers rely on their own context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records caller-side failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithConcurrency caps in-flight lookups per Resolve call.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// Client is the caller end of the channel. It is safe for concurrent use.
type Client struct {
	requests chan<- Request
	done     <-chan struct{}

	timeout     time.Duration
	concurrency int
	log         *slog.Logger
	metrics     *metrics.Metrics
}

var _ Querier = (*Client)(nil)

// Alive reports whether the worker is still running.
func (c *Client) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed once the worker has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Do sends req and waits for its reply.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if req.Kind == KindShutdown {
		return Response{}, c.Shutdown(ctx)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.reply = make(chan Response, 1)

	if !c.Alive() {
		return Response{}, ErrChannelDisconnected
	}
	select {
	case c.requests <- req:
	case <-c.done:
		return Response{}, ErrChannelDisconnected
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w: %w", ErrChannelSendFailure, ctx.Err())
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-c.done:
		// the worker may have answered right before exiting
		select {
		case resp := <-req.reply:
			return resp, nil
		default:
			return Response{}, ErrChannelDisconnected
		}
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w: %w", ErrNoReply, ctx.Err())
	}
}

// Shutdown queues the stop sentinel behind any pending requests. It returns
// nil if the worker has already exited.
func (c *Client) Shutdown(ctx context.Context) error {
	if !c.Alive() {
		return nil
	}
	select {
	case c.requests <- Request{Kind: KindShutdown}:
		return nil
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrChannelSendFailure, ctx.Err())
	}
}

// Lookup resolves a single word. Channel failures are logged and reported
// as not found.
func (c *Client) Lookup(ctx context.Context, word string) (model.Vector, bool) {
	resp, err := c.Do(ctx, Request{Kind: KindLookup, Word: word})
	if err != nil {
		c.log.Warn("lookup failed", "word", word, "err", err)
		c.metrics.ClientFailure(failureReason(err))
		return nil, false
	}
	return resp.Vector, resp.Found
}

// Resolve looks up every distinct word concurrently. Absent words map to a
// nil vector.
func (c *Client) Resolve(ctx context.Context, words []string) map[string]model.Vector {
	out := make(map[string]model.Vector, len(words))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, w := range words {
		w := w
		mu.Lock()
		_, seen := out[w]
		out[w] = nil
		mu.Unlock()
		if seen {
			continue
		}
		g.Go(func() error {
			v, ok := c.Lookup(gctx, w)
			if ok {
				mu.Lock()
				out[w] = v
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Similarity asks the worker for the cosine similarity of two words.
func (c *Client) Similarity(ctx context.Context, a, b string) (Response, error) {
	resp, err := c.Do(ctx, Request{Kind: KindSimilarity, Word: a, Other: b})
	if err != nil {
		c.metrics.ClientFailure(failureReason(err))
	}
	return resp, err
}

// Neighbors ranks stored words against Σpositive − Σnegative. The input
// words are left out of the ranking. k <= 0 returns every word.
func (c *Client) Neighbors(ctx context.Context, positive, negative []string, k int) (Response, error) {
	resp, err := c.Do(ctx, Request{Kind: KindNeighbors, Positive: positive, Negative: negative, TopK: k})
	if err != nil {
		c.metrics.ClientFailure(failureReason(err))
	}
	return resp, err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrChannelDisconnected):
		return "disconnected"
	case errors.Is(err, ErrChannelSendFailure):
		return "send_failure"
	case errors.Is(err, ErrNoReply):
		return "no_reply"
	default:
		return "other"
	}
}
