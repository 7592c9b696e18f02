package queue

import (
	"context"
	"encoding/json"
)

// Handler turns a request payload into a reply payload.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Queue exposes request/reply endpoints on a message bus.
type Queue interface {
	// Respond serves subject until ctx is done. Replicas share the load
	// through a queue group.
	Respond(ctx context.Context, subject string, handler Handler) error
	Close() error
}

// ErrorReply is sent back when a handler fails.
type ErrorReply struct {
	Error string `json:"error"`
}

func errorPayload(err error) []byte {
	body, _ := json.Marshal(ErrorReply{Error: err.Error()})
	return body
}
