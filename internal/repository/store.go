package repository

import "context"

// Store defines the durable key-value capability the cart is persisted to.
// Implementations report ErrStorageUnavailable when the backend cannot be
// reached and ErrStorageQuotaExceeded when a value does not fit.
type Store interface {
	// Get returns the value under key; found is false when nothing is stored
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
}
