// Package storage provides abstractions for persistent data storage.
package storage

import "context"

// KV is a string-keyed, string-valued durable store. It plays the role a
// browser's local storage plays for a web client: every Set is durable when
// it returns, and there are no transactions across keys.
//
// This abstraction allows swapping backends (SQLite, in-memory) without
// changing the record layer.
type KV interface {
	// Get returns the value stored under key. ok is false when the key has
	// never been written or was deleted.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
