package queue

import "errors"

var (
	// ErrQueueClosed is returned when operating on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrEntryNotFound is returned when a dead letter entry is not found
	ErrEntryNotFound = errors.New("dead letter entry not found")
)
