package persistence

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"quickbasket/internal/repository"
	cerrors "quickbasket/pkg/errors"

	"go.uber.org/zap"
)

const (
	// RecentlyViewedKey is the store key of the recently viewed list
	RecentlyViewedKey = "recently_viewed"
	// DefaultRecentlyViewedLimit caps the list length
	DefaultRecentlyViewedLimit = 8
)

// RecentlyViewed keeps the product names a shopper looked at, most recent
// first and without duplicates.
type RecentlyViewed struct {
	store repository.Store
	log   *zap.Logger
	limit int

	mu sync.Mutex
}

// NewRecentlyViewed creates the list over store
func NewRecentlyViewed(store repository.Store, log *zap.Logger, limit int) *RecentlyViewed {
	if limit <= 0 {
		limit = DefaultRecentlyViewedLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RecentlyViewed{store: store, log: log.Named("recently_viewed"), limit: limit}
}

// Push moves name to the front of the list and returns the new list
func (r *RecentlyViewed) Push(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, cerrors.InvalidInputf("product name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := []string{name}
	for _, n := range r.readLocked(ctx) {
		if n != name && len(names) < r.limit {
			names = append(names, n)
		}
	}

	b, err := json.Marshal(names)
	if err != nil {
		return names, err
	}
	if err := r.store.Set(ctx, RecentlyViewedKey, string(b)); err != nil {
		r.log.Warn("could not persist recently viewed list", zap.Error(err))
		return names, err
	}
	return names, nil
}

// List returns the stored names. Unreadable data is deleted and an empty
// list returned.
func (r *RecentlyViewed) List(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked(ctx)
}

func (r *RecentlyViewed) readLocked(ctx context.Context) []string {
	raw, ok, err := r.store.Get(ctx, RecentlyViewedKey)
	if err != nil {
		r.log.Warn("could not read recently viewed list", zap.Error(err))
		return []string{}
	}
	if !ok || raw == "" {
		return []string{}
	}

	var values []interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		r.log.Warn("clearing unreadable recently viewed list", zap.Error(err))
		if err := r.store.Delete(ctx, RecentlyViewedKey); err != nil {
			r.log.Error("error clearing recently viewed list", zap.Error(err))
		}
		return []string{}
	}

	names := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" && len(names) < r.limit {
			names = append(names, s)
		}
	}
	return names
}
