// Package shutdown stops the listener and the inference worker together.
package shutdown

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Stopper is anything that can be asked to stop, typically a worker client.
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDrain runs drain after listeners are cancelled and before the worker
// is asked to stop, so requests already accepted can still reach it.
func WithDrain(drain func(ctx context.Context) error) Option {
	return func(c *Coordinator) { c.drain = drain }
}

// Coordinator fires two signals exactly once: it cancels the listener
// context and queues a stop request for the worker.
type Coordinator struct {
	log     *slog.Logger
	stopper Stopper
	timeout time.Duration
	drain   func(ctx context.Context) error

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New returns a coordinator and the context listeners should serve under.
// timeout bounds the drain and, separately, how long Trigger waits to
// enqueue the worker stop request.
func New(parent context.Context, log *slog.Logger, stopper Stopper, timeout time.Duration, opts ...Option) (*Coordinator, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		log:     log,
		stopper: stopper,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, ctx
}

// Trigger starts shutdown and returns once the worker stop request is
// queued. Later calls wait for the first to finish and do nothing else.
func (c *Coordinator) Trigger(reason string) {
	c.once.Do(func() {
		c.log.Info("shutdown triggered", "reason", reason)
		c.cancel()

		if c.drain != nil {
			ctx, cancel := c.bounded()
			if err := c.drain(ctx); err != nil {
				c.log.Warn("drain incomplete", "err", err)
			}
			cancel()
		}

		ctx, cancel := c.bounded()
		defer cancel()
		if err := c.stopper.Shutdown(ctx); err != nil {
			c.log.Error("failed to stop worker", "err", err)
		}
	})
}

func (c *Coordinator) bounded() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(context.Background(), c.timeout)
	}
	return context.WithCancel(context.Background())
}

// Watch triggers shutdown when signals is cancelled (e.g. by
// signal.NotifyContext). It returns once either side has fired.
func (c *Coordinator) Watch(signals context.Context) {
	select {
	case <-signals.Done():
		c.Trigger("signal")
	case <-c.ctx.Done():
	}
}

// Done is closed once shutdown has been triggered.
func (c *Coordinator) Done() <-chan struct{} {
	return c.ctx.Done()
}
