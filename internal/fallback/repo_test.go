package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gasexpress/internal/clients"
	"gasexpress/internal/kv"
)

// scriptedRepo plays back one response per call.
type scriptedRepo struct {
	items []string
	errs  []error
	calls int
}

func (r *scriptedRepo) List(ctx context.Context) ([]string, error) {
	err := r.next()
	if err != nil {
		return nil, err
	}
	return r.items, nil
}

func (r *scriptedRepo) Replace(ctx context.Context, items []string) error {
	if err := r.next(); err != nil {
		return err
	}
	r.items = items
	return nil
}

func (r *scriptedRepo) next() error {
	defer func() { r.calls++ }()
	if r.calls < len(r.errs) {
		return r.errs[r.calls]
	}
	return nil
}

func newLocal() kv.ListRepo[string] {
	return kv.NewStoreList[string](kv.NewMemoryStore(), "test_items")
}

func TestListPrefersRemoteAndMirrors(t *testing.T) {
	remote := &scriptedRepo{items: []string{"a", "b"}}
	local := newLocal()
	repo := New("items", remote, local)
	ctx := context.Background()

	got, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	mirrored, err := local.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, mirrored, "remote reads refresh the local mirror")
}

func TestListFallsBackWhenUnavailable(t *testing.T) {
	local := newLocal()
	ctx := context.Background()
	require.NoError(t, local.Replace(ctx, []string{"cached"}))

	remote := &scriptedRepo{errs: []error{clients.ErrUnavailable}}
	repo := New("items", remote, local)

	got, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, got)
}

func TestClientErrorNeverFallsBack(t *testing.T) {
	local := newLocal()
	ctx := context.Background()
	require.NoError(t, local.Replace(ctx, []string{"cached"}))

	statusErr := &clients.StatusError{Code: 409, Body: "duplicate"}
	remote := &scriptedRepo{errs: []error{statusErr}}
	repo := New("items", remote, local)

	_, err := repo.List(ctx)
	var got *clients.StatusError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 409, got.Code)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	local := newLocal()
	ctx := context.Background()
	require.NoError(t, local.Replace(ctx, []string{"cached"}))

	remote := &scriptedRepo{errs: []error{
		clients.ErrUnavailable, clients.ErrUnavailable, clients.ErrUnavailable,
	}}
	repo := New("items", remote, local)

	for i := 0; i < 5; i++ {
		got, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"cached"}, got)
	}

	// After three consecutive failures the breaker is open and the remote
	// side is no longer consulted.
	assert.Equal(t, 3, remote.calls)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	statusErr := &clients.StatusError{Code: 404, Body: "missing"}
	remote := &scriptedRepo{errs: []error{statusErr, statusErr, statusErr, statusErr}, items: []string{"late"}}
	repo := New("items", remote, newLocal())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := repo.List(ctx)
		require.Error(t, err)
	}

	// Fifth call reaches the remote side: deliberate 4xx answers kept the
	// breaker closed.
	got, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, got)
	assert.Equal(t, 5, remote.calls)
}

func TestReplaceFallsBackToLocal(t *testing.T) {
	local := newLocal()
	remote := &scriptedRepo{errs: []error{clients.ErrUnavailable}}
	repo := New("items", remote, local)
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, []string{"offline-write"}))

	stored, err := local.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"offline-write"}, stored)
}

func TestCancelledCallAppliesNothing(t *testing.T) {
	local := newLocal()
	ctx := context.Background()
	require.NoError(t, local.Replace(ctx, []string{"before"}))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	remote := &scriptedRepo{errs: []error{context.Canceled}}
	repo := New("items", remote, local)

	err := repo.Replace(cancelled, []string{"after"})
	assert.ErrorIs(t, err, context.Canceled)

	stored, listErr := local.List(ctx)
	require.NoError(t, listErr)
	assert.Equal(t, []string{"before"}, stored, "a cancelled write must not land locally")
}
