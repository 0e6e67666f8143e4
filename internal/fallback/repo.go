// Package fallback pairs a remote list repository with its local store-backed
// copy. The remote side is primary; when it is unavailable or the breaker is
// open, reads and writes land on the local copy so the storefront keeps
// working offline.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"gasexpress/internal/clients"
	"gasexpress/internal/kv"
)

// ListRepo serves one collection from the remote backend with a local
// fallback. It satisfies the same port as its two sides.
type ListRepo[T any] struct {
	name    string
	remote  kv.ListRepo[T]
	local   kv.ListRepo[T]
	breaker *gobreaker.CircuitBreaker
	offline atomic.Bool
}

// New builds a dual-backend repository. The breaker opens after three
// consecutive unavailability failures; 4xx responses count as successes
// because the backend is reachable and has spoken.
func New[T any](name string, remote, local kv.ListRepo[T]) *ListRepo[T] {
	return &ListRepo[T]{
		name:   name,
		remote: remote,
		local:  local,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, clients.ErrUnavailable)
			},
		}),
	}
}

// List reads the remote collection, refreshing the local mirror on success.
// Unavailability serves the local copy; any other remote error is surfaced.
func (r *ListRepo[T]) List(ctx context.Context) ([]T, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		return r.remote.List(ctx)
	})
	if err == nil {
		items := result.([]T)
		r.markOnline()
		if mirrorErr := r.local.Replace(ctx, items); mirrorErr != nil {
			slog.Warn("refreshing local mirror failed", "repo", r.name, "error", mirrorErr)
		}
		return items, nil
	}

	if ctx.Err() != nil {
		// The caller cancelled: apply nothing, serve nothing.
		return nil, ctx.Err()
	}
	if !fallbackEligible(err) {
		return nil, err
	}
	r.markOffline(err)
	return r.local.List(ctx)
}

// Replace writes the remote collection and mirrors it locally. When the
// remote side is unavailable the write lands on the local copy alone.
func (r *ListRepo[T]) Replace(ctx context.Context, items []T) error {
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.remote.Replace(ctx, items)
	})
	if err == nil {
		r.markOnline()
		return r.local.Replace(ctx, items)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !fallbackEligible(err) {
		return err
	}
	r.markOffline(err)
	return r.local.Replace(ctx, items)
}

// fallbackEligible reports whether the error means the backend cannot be
// reached. 4xx responses are deliberate answers and never fall back.
func fallbackEligible(err error) bool {
	return errors.Is(err, clients.ErrUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

// markOffline logs the transition once per outage.
func (r *ListRepo[T]) markOffline(err error) {
	if r.offline.CompareAndSwap(false, true) {
		slog.Warn("backend unavailable, serving local copy", "repo", r.name, "error", err)
	}
}

func (r *ListRepo[T]) markOnline() {
	if r.offline.CompareAndSwap(true, false) {
		slog.Info("backend recovered", "repo", r.name)
	}
}
