// Package persistence keeps the cart's line items in a durable key-value
// store. Stored data is treated as untrusted: it is validated item by item on
// load and unreadable records are deleted rather than reported.
//
// No method panics or fails a cart operation. Callers get an error or a
// present/absent flag and carry on with the in-memory cart.
package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"quickbasket/internal/model"
	"quickbasket/internal/notify"
	"quickbasket/internal/repository"
	"quickbasket/internal/scheduler"
	cerrors "quickbasket/pkg/errors"

	"go.uber.org/zap"
)

const (
	// CartKey is the store key holding the cart record
	CartKey = "shopping_cart"
	// RecordVersion is written into every record
	RecordVersion = "1.0"
	// DefaultDebounce is the quiet period before a debounced save is written
	DefaultDebounce = 300 * time.Millisecond
	// DefaultTimeout bounds store calls made from the debounce timer
	DefaultTimeout = 5 * time.Second

	scratchKey = "__storage_test__"

	quotaNotice = "Storage full. Cart data cleared to free up space."
)

// Adapter persists the cart item list
type Adapter struct {
	store    repository.Store
	sched    scheduler.Scheduler
	notifier notify.Notifier
	log      *zap.Logger

	key     string
	delay   time.Duration
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	timer      scheduler.Timer
	gen        uint64
	pending    []model.LineItem
	hasPending bool
}

// Option configures an Adapter
type Option func(*Adapter)

// WithDebounce sets the quiet period of DebouncedSave
func WithDebounce(d time.Duration) Option {
	return func(a *Adapter) { a.delay = d }
}

// WithTimeout bounds the store calls issued by the debounce timer
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithClock replaces time.Now for record timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithKey stores the record under key instead of CartKey
func WithKey(key string) Option {
	return func(a *Adapter) { a.key = key }
}

// NewAdapter creates an adapter over store. A nil notifier or logger is
// replaced by a no-op.
func NewAdapter(store repository.Store, sched scheduler.Scheduler, notifier notify.Notifier, log *zap.Logger, opts ...Option) *Adapter {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{
		store:    store,
		sched:    sched,
		notifier: notifier,
		log:      log.Named("persistence"),
		key:      CartKey,
		delay:    DefaultDebounce,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsAvailable tests the store with a throwaway write and delete
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if err := a.checkWritable(ctx); err != nil {
		a.log.Warn("storage is not available", zap.Error(err))
		return false
	}
	return true
}

func (a *Adapter) checkWritable(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return err
	}
	if err := a.store.Set(ctx, scratchKey, "test"); err != nil {
		return err
	}
	return a.store.Delete(ctx, scratchKey)
}

// Save writes items as a fresh record. It fails with ErrInvalidInput when an
// item breaks the constraints Load enforces, ErrStorageUnavailable when the
// store cannot be reached, and ErrStorageQuotaExceeded after clearing the
// record when the write does not fit.
func (a *Adapter) Save(ctx context.Context, items []model.LineItem) error {
	for _, item := range items {
		if !item.Price.IsPositive() || item.Quantity <= 0 || item.Quantity > model.MaxQuantity {
			a.log.Error("invalid cart data, refusing to save", zap.String("item", item.Name))
			return cerrors.InvalidInputf("item %q has price %s and quantity %d", item.Name, item.Price, item.Quantity)
		}
	}

	if !a.IsAvailable(ctx) {
		a.log.Warn("cannot save cart: storage not available")
		return cerrors.ErrStorageUnavailable
	}

	payload, err := encodeRecord(items, a.now())
	if err != nil {
		a.log.Error("error encoding cart", zap.Error(err))
		return err
	}

	if err := a.store.Set(ctx, a.key, payload); err != nil {
		if errors.Is(err, cerrors.ErrStorageQuotaExceeded) {
			a.log.Error("cannot save cart: storage quota exceeded", zap.Int("bytes", len(payload)))
			a.handleQuotaExceeded(ctx)
			return err
		}
		a.log.Error("error saving cart", zap.Error(err))
		return err
	}

	a.log.Debug("cart saved", zap.Int("items", len(items)), zap.Int("bytes", len(payload)))
	return nil
}

// handleQuotaExceeded drops the stored record to free space. The failed
// write is not retried.
func (a *Adapter) handleQuotaExceeded(ctx context.Context) {
	if err := a.store.Delete(ctx, a.key); err != nil {
		a.log.Error("failed to handle storage quota exceeded", zap.Error(err))
		return
	}
	a.log.Warn("storage quota exceeded, cart data cleared to free up space")
	a.notifier.Notify(quotaNotice, notify.Warning)
}

// Load reads the stored record. found is false when the store is unavailable,
// holds nothing, or held a record that could not be read; such a record is
// deleted. Items that fail validation are dropped and the rest returned.
func (a *Adapter) Load(ctx context.Context) (items []model.LineItem, found bool) {
	if !a.IsAvailable(ctx) {
		a.log.Warn("cannot load cart: storage not available")
		return nil, false
	}

	raw, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.log.Error("error loading cart", zap.Error(err))
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	items, dropped, err := decodeRecord(raw)
	if err != nil {
		a.log.Warn("clearing unreadable cart data", zap.Error(err))
		if err := a.store.Delete(ctx, a.key); err != nil {
			a.log.Error("error clearing corrupted cart", zap.Error(err))
		}
		return nil, false
	}
	if dropped > 0 {
		a.log.Warn("some cart items were invalid and filtered out", zap.Int("dropped", dropped), zap.Int("kept", len(items)))
	}

	return items, true
}

// Clear deletes the stored record. Clearing an empty store succeeds.
func (a *Adapter) Clear(ctx context.Context) error {
	if !a.IsAvailable(ctx) {
		a.log.Warn("cannot clear cart: storage not available")
		return cerrors.ErrStorageUnavailable
	}
	if err := a.store.Delete(ctx, a.key); err != nil {
		a.log.Error("error clearing cart", zap.Error(err))
		return err
	}
	return nil
}

// DebouncedSave schedules a save of items once no further call has arrived
// for the quiet period. A newer call replaces the pending snapshot and
// restarts the wait.
func (a *Adapter) DebouncedSave(items []model.LineItem) {
	snapshot := cloneItems(items)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.pending = snapshot
	a.hasPending = true
	a.timer = a.sched.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *Adapter) fire(gen uint64) {
	items, ok := a.takePending(gen)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.Save(ctx, items); err != nil {
		a.log.Warn("debounced cart save failed, cart is session-only", zap.Error(err))
	}
}

func (a *Adapter) takePending(gen uint64) ([]model.LineItem, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasPending || gen != a.gen {
		return nil, false
	}
	items := a.pending
	a.pending, a.hasPending, a.timer = nil, false, nil
	return items, true
}

// Flush writes a pending debounced snapshot now. It is a no-op when nothing
// is pending.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.Lock()
	if !a.hasPending {
		a.mu.Unlock()
		return nil
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	items := a.pending
	a.pending, a.hasPending, a.timer = nil, false, nil
	a.gen++
	a.mu.Unlock()

	return a.Save(ctx, items)
}

// Pending reports whether a debounced save is waiting
func (a *Adapter) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasPending
}

// Info describes the stored record
func (a *Adapter) Info(ctx context.Context) model.StorageInfo {
	if !a.IsAvailable(ctx) {
		return model.StorageInfo{Available: false, Key: a.key}
	}

	raw, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		return model.StorageInfo{Available: false, Key: a.key, Error: err.Error()}
	}

	return model.StorageInfo{
		Available: true,
		HasData:   ok && raw != "",
		DataSize:  len(raw),
		Key:       a.key,
	}
}

func cloneItems(items []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, len(items))
	copy(out, items)
	return out
}
