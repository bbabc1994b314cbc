// Package storage defines persistence interfaces for the watcher. The
// subscriber list is the only durable state in the system.
package storage

import "context"

// SubscriberStore provides access to the alert subscriber list, keyed by
// chat id. Implementations are safe for concurrent use.
type SubscriberStore interface {
	// Add registers a chat id. Adding an existing id is a no-op.
	Add(ctx context.Context, chatID int64) error

	// Remove deletes a chat id. Removing an unknown id returns ErrNotFound.
	Remove(ctx context.Context, chatID int64) error

	// List returns all subscribed chat ids in ascending order.
	List(ctx context.Context) ([]int64, error)

	// Close releases underlying resources.
	Close() error
}
