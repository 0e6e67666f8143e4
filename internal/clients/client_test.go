package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gasexpress/internal/account"
	"gasexpress/internal/kv"
	"gasexpress/internal/session"
)

// fakeSessions scripts the refresh path.
type fakeSessions struct {
	refreshOK   bool
	refreshed   int
	loggedOut   int
	rotateToken func()
}

func (f *fakeSessions) Refresh(ctx context.Context) bool {
	f.refreshed++
	if f.refreshOK && f.rotateToken != nil {
		f.rotateToken()
	}
	return f.refreshOK
}

func (f *fakeSessions) Logout(ctx context.Context) { f.loggedOut++ }

func (f *fakeSessions) Login(ctx context.Context, email, password string) session.Result {
	return session.Result{}
}

func (f *fakeSessions) Register(ctx context.Context, params session.RegisterParams) session.Result {
	return session.Result{}
}

func (f *fakeSessions) Verify(ctx context.Context, requiredRole account.Role) *account.Account {
	return nil
}

func (f *fakeSessions) ConfigureTTL(minutes int) {}

func TestRequestCarriesAuthHeaders(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(kv.KeySessionToken, "tok-123"))
	require.NoError(t, store.Set(kv.KeyCSRFToken, "csrf-456"))

	var gotAuth, gotCSRF string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCSRF = r.Header.Get("X-CSRF-Token")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(srv.URL, store, nil)
	var out []struct{}
	require.NoError(t, client.Get(context.Background(), "/api/v1/users", &out))

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "csrf-456", gotCSRF)
}

func TestAnonymousRequestOmitsAuthHeaders(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(srv.URL, kv.NewMemoryStore(), nil)
	var out []struct{}
	require.NoError(t, client.Get(context.Background(), "/api/v1/products", &out))
	assert.False(t, hasAuth)
}

func TestUnauthorizedRetriesOnceAfterRefresh(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(kv.KeySessionToken, "stale"))

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	sessions := &fakeSessions{refreshOK: true}
	sessions.rotateToken = func() { store.Set(kv.KeySessionToken, "fresh") }

	client := New(srv.URL, store, sessions)
	var out []struct{}
	require.NoError(t, client.Get(context.Background(), "/api/v1/orders", &out))

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, sessions.refreshed)
	assert.Zero(t, sessions.loggedOut)
}

func TestFailedRefreshTearsSessionDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sessions := &fakeSessions{refreshOK: false}
	client := New(srv.URL, kv.NewMemoryStore(), sessions)

	err := client.Get(context.Background(), "/api/v1/orders", &[]struct{}{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, sessions.loggedOut)
}

func TestPersistentUnauthorizedLogsOutAfterRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sessions := &fakeSessions{refreshOK: true}
	client := New(srv.URL, kv.NewMemoryStore(), sessions)

	err := client.Get(context.Background(), "/api/v1/orders", &[]struct{}{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, sessions.loggedOut)
}

func TestServerErrorsMapToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, kv.NewMemoryStore(), nil)
	err := client.Get(context.Background(), "/api/v1/users", &[]struct{}{})
	assert.ErrorIs(t, err, ErrUnavailable)

	// Transport failure as well.
	srv.Close()
	err = client.Get(context.Background(), "/api/v1/users", &[]struct{}{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientErrorsSurfaceAsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`duplicate id`))
	}))
	defer srv.Close()

	client := New(srv.URL, kv.NewMemoryStore(), nil)
	err := client.Post(context.Background(), "/api/v1/products", map[string]string{"id": "#P001"}, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.Code)
	assert.Equal(t, "duplicate id", statusErr.Body)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestCancelledContextIsNotAnOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(srv.URL, kv.NewMemoryStore(), nil)
	err := client.Get(ctx, "/api/v1/users", &[]struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestRemoteListRoundTrip(t *testing.T) {
	var stored []account.Account
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			if stored == nil {
				w.Write([]byte(`[]`))
				return
			}
			_ = json.NewEncoder(w).Encode(stored)
		case http.MethodPut:
			stored = []account.Account{{ID: "#U101", Email: "juan@example.com"}}
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	repo := NewUsersRepo(New(srv.URL, kv.NewMemoryStore(), nil))
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, []account.Account{{ID: "#U101", Email: "juan@example.com"}}))
	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "#U101", got[0].ID)
}
