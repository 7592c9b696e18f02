package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const drainPollInterval = 10 * time.Millisecond

// NewNATS constructs a thin NATS-based responder. drainTimeout bounds how
// long Respond and Close wait for in-flight messages.
func NewNATS(log *slog.Logger, nc *nats.Conn, drainTimeout time.Duration) Queue {
	return &natsQueue{log: log, nc: nc, drainTimeout: drainTimeout}
}

type natsQueue struct {
	log          *slog.Logger
	nc           *nats.Conn
	drainTimeout time.Duration
}

func (q *natsQueue) Respond(ctx context.Context, subject string, handler Handler) error {
	group := "wordvec-" + subject
	sub, err := q.nc.QueueSubscribe(subject, group, q.messageHandler(ctx, handler))
	if err != nil {
		return err
	}
	q.log.Info("nats responder subscribed", "subject", subject, "group", group)
	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		return err
	}
	return waitFor(func() bool { return !sub.IsValid() }, q.drainTimeout)
}

// messageHandler detaches handlers from ctx: messages still delivered while
// the subscription drains must be answered, not failed.
func (q *natsQueue) messageHandler(ctx context.Context, handler Handler) nats.MsgHandler {
	hctx := context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		q.handleMessage(hctx, msg, handler)
	}
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	body, ok := q.reply(ctx, msg, handler)
	if !ok {
		return
	}
	if err := msg.Respond(body); err != nil {
		q.log.Error("failed to send reply", "subject", msg.Subject, "err", err)
	}
}

// reply runs handler for msg. It reports false for messages nobody waits on.
func (q *natsQueue) reply(ctx context.Context, msg *nats.Msg, handler Handler) ([]byte, bool) {
	if msg.Reply == "" {
		q.log.Warn("dropping message without reply subject", "subject", msg.Subject)
		return nil, false
	}
	body, err := handler(ctx, msg.Data)
	if err != nil {
		q.log.Warn("handler failed", "subject", msg.Subject, "err", err)
		body = errorPayload(err)
	}
	return body, true
}

func (q *natsQueue) Close() error {
	if err := q.nc.Drain(); err != nil {
		return err
	}
	return waitFor(q.nc.IsClosed, q.drainTimeout)
}

// waitFor polls done until it reports true or timeout passes. A
// non-positive timeout waits forever.
func waitFor(done func() bool, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for !done() {
		select {
		case <-ticker.C:
		case <-deadline:
			return fmt.Errorf("nats drain did not finish within %s", timeout)
		}
	}
	return nil
}
