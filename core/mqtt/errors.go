package mqtt

import "errors"

var (
	// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
	ErrAckTimeout = errors.New("timeout waiting for ack")
	// ErrUnknownOrder is returned when waiting on an order that was never sent.
	ErrUnknownOrder = errors.New("unknown order")
)
