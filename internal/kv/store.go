// Package kv provides the key-value store port the storefront persists
// through, modeled on a browser-local JSON keyspace: one JSON value per key,
// lossy low-priority writes under quota pressure, and in-process change
// signals instead of polling.
//
// There is no cross-process coordination: two processes sharing the same
// backing file race with last-write-wins semantics. This is an accepted
// limitation of the storage model, not a contract.
package kv

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys. One JSON value per key; domain lists are stored whole.
const (
	KeyUsers         = "gasexpress_users"
	KeyProducts      = "gasexpress_products"
	KeyOrders        = "gasexpress_orders"
	KeyCurrentUser   = "gasexpress_current_user"
	KeyCart          = "gasexpress_cart"
	KeySessionToken  = "gasexpress_session_token"
	KeyCSRFToken     = "gasexpress_csrf_token"
	KeyActivityLog   = "gasexpress_activity_log"
	KeyLoginAttempts = "gasexpress_login_attempts"
	KeySessionExp    = "gasexpress_session_exp"
)

// ErrQuotaExceeded is returned by Set when a write still does not fit after
// evicting the low-priority keys. Callers writing low-priority data must
// tolerate the loss.
var ErrQuotaExceeded = errors.New("kv: storage quota exceeded")

// Signal names an in-process change notification.
type Signal string

const (
	// SignalAuthChanged fires after writes or removals of the
	// current-account snapshot.
	SignalAuthChanged Signal = "auth-changed"
	// SignalCartUpdated fires after writes or removals of the cart.
	SignalCartUpdated Signal = "cart-updated"
)

// Store is the storage port shared by every component. Operations are
// synchronous; implementations must never propagate parse failures out of
// Get.
type Store interface {
	// Get unmarshals the value stored under key into dst and reports
	// whether it did. A missing key or corrupt value leaves dst untouched
	// and returns false, so callers keep their fallback.
	Get(key string, dst any) bool

	// Set marshals v and stores it under key. On quota pressure the cart
	// and activity-log keys are evicted and the write retried once;
	// ErrQuotaExceeded is returned only when the retry also fails.
	Set(key string, v any) error

	// Remove deletes key. Removing a missing key is a no-op.
	Remove(key string)

	// Subscribe returns a channel that receives a tick after every write
	// or removal relevant to the signal. Delivery is best-effort: a
	// subscriber that is not draining misses ticks rather than blocking
	// the writer.
	Subscribe(signal Signal) <-chan struct{}
}

// evictable are the keys dropped, in order, when a write exceeds the quota.
var evictable = []string{KeyCart, KeyActivityLog}

// signalFor maps a key to the signal its writes broadcast, if any.
func signalFor(key string) (Signal, bool) {
	switch key {
	case KeyCurrentUser:
		return SignalAuthChanged, true
	case KeyCart:
		return SignalCartUpdated, true
	}
	return "", false
}

// notifier fans change signals out to subscribers.
type notifier struct {
	mu   sync.Mutex
	subs map[Signal][]chan struct{}
}

func (n *notifier) subscribe(signal Signal) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[Signal][]chan struct{})
	}
	ch := make(chan struct{}, 1)
	n.subs[signal] = append(n.subs[signal], ch)
	return ch
}

func (n *notifier) broadcast(signal Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[signal] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ListRepo is the typed list port the aggregates persist through: the whole
// list is read, mutated in memory, and written back, mirroring the storage
// model's one-JSON-value-per-key layout.
type ListRepo[T any] interface {
	List(ctx context.Context) ([]T, error)
	Replace(ctx context.Context, items []T) error
}

// StoreList adapts a Store key into a ListRepo.
type StoreList[T any] struct {
	store Store
	key   string
}

// NewStoreList returns a ListRepo reading and writing the given key.
func NewStoreList[T any](store Store, key string) *StoreList[T] {
	return &StoreList[T]{store: store, key: key}
}

func (l *StoreList[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	l.store.Get(l.key, &items)
	return items, nil
}

func (l *StoreList[T]) Replace(ctx context.Context, items []T) error {
	return l.store.Set(l.key, items)
}
