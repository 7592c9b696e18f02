package worker

import "errors"

var (
	// ErrChannelDisconnected means the worker has exited and will not answer.
	ErrChannelDisconnected = errors.New("worker channel disconnected")

	// ErrChannelSendFailure means the request could not be queued in time.
	ErrChannelSendFailure = errors.New("worker channel send failed")

	// ErrNoReply means the request was queued but the caller gave up waiting.
	ErrNoReply = errors.New("worker did not reply in time")
)
