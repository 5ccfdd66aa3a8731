package repository

import (
	"context"
	"fmt"

	cerrors "quickbasket/pkg/errors"
)

// quotaStore rejects writes whose key and value exceed a byte budget
type quotaStore struct {
	Store
	maxBytes int
}

// NewQuotaStore wraps inner so that any entry larger than maxBytes fails
// with ErrStorageQuotaExceeded. A non-positive maxBytes returns inner as is.
func NewQuotaStore(inner Store, maxBytes int) Store {
	if maxBytes <= 0 {
		return inner
	}
	return &quotaStore{Store: inner, maxBytes: maxBytes}
}

// Set stores value under key if it fits the budget
func (s *quotaStore) Set(ctx context.Context, key, value string) error {
	if size := len(key) + len(value); size > s.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", cerrors.ErrStorageQuotaExceeded, size, s.maxBytes)
	}
	return s.Store.Set(ctx, key, value)
}
