package worker

import (
	"sync"

	"github.com/google/uuid"

	"wordvec/internal/model"
)

// Kind tags a Request.
type Kind int

const (
	KindLookup Kind = iota
	KindSimilarity
	KindNeighbors
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindLookup:
		return "lookup"
	case KindSimilarity:
		return "similarity"
	case KindNeighbors:
		return "neighbors"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Request is a message from a caller to the worker. Every request except
// Shutdown carries its own reply channel, so callers never share a response
// path.
type Request struct {
	ID   uuid.UUID
	Kind Kind

	// Word is the lookup word, or the first word of a similarity pair.
	Word  string
	Other string

	Positive []string
	Negative []string
	TopK     int

	reply chan Response
}

// Response is the worker's answer to one Request.
type Response struct {
	Found     bool
	Vector    model.Vector
	Score     float32
	Neighbors []model.Neighbor
	Missing   []string
}

// Inbox is the worker's end of the channel. It must only be used by the
// goroutine running the worker.
type Inbox struct {
	requests <-chan Request
	done     chan struct{}
	once     sync.Once
}

func (in *Inbox) receive() Request {
	return <-in.requests
}

// len reports how many requests are waiting.
func (in *Inbox) len() int {
	return len(in.requests)
}

func (in *Inbox) close() {
	in.once.Do(func() { close(in.done) })
}

// NewChannel creates a linked caller/worker pair. capacity bounds how many
// requests may be queued ahead of the worker.
func NewChannel(capacity int, opts ...Option) (*Client, *Inbox) {
	if capacity < 0 {
		capacity = 0
	}
	reqs := make(chan Request, capacity)
	done := make(chan struct{})

	c := &Client{
		requests:    reqs,
		done:        done,
		concurrency: defaultConcurrency,
		log:         discardLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, &Inbox{requests: reqs, done: done}
}
