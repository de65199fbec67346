package queue

import "errors"

var (
	// ErrQueueClosed is returned when publishing to or receiving from a closed transport
	ErrQueueClosed = errors.New("queue is closed")

	// ErrMalformedMessage is returned when a message body is not a valid sync trigger
	ErrMalformedMessage = errors.New("malformed trigger message")

	// ErrConsumerNotRunning is returned when stopping a consumer that was never started
	ErrConsumerNotRunning = errors.New("consumer is not running")
)
