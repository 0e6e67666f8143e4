package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gasexpress/internal/account"
	"gasexpress/internal/audit"
	"gasexpress/internal/cart"
	"gasexpress/internal/catalog"
	"gasexpress/internal/kv"
	"gasexpress/internal/orders"
	"gasexpress/internal/session"
)

func newTestAPI(t *testing.T) (http.Handler, Services) {
	t.Helper()
	store := kv.NewMemoryStore()
	trail := audit.NewTrail(store)
	accounts := account.NewService(kv.NewStoreList[account.Account](store, kv.KeyUsers), trail)
	cat := catalog.NewService(kv.NewStoreList[catalog.Product](store, kv.KeyProducts), trail)
	ord := orders.NewService(kv.NewStoreList[orders.Order](store, kv.KeyOrders), cat, trail)

	svc := Services{
		Sessions: session.NewService(store, accounts, trail),
		Accounts: accounts,
		Catalog:  cat,
		Orders:   ord,
		Cart:     cart.New(store),
		Trail:    trail,
	}

	ctx := context.Background()
	seeds := []account.CreateParams{
		{ID: account.RootID, Name: "Root", Email: "admin@tav.cl", Password: "Root123!", Role: account.RoleAdmin},
		{Name: "User", Email: "user@test.com", Password: "123"},
	}
	for _, params := range seeds {
		_, err := accounts.Create(ctx, params)
		require.NoError(t, err)
	}
	_, err := cat.Add(ctx, catalog.Product{ID: "#P001", Name: "Cilindro de Gas 5kg", Price: 12000, Stock: 10}, "")
	require.NoError(t, err)

	return NewHandler(svc).Router(), svc
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, handler http.Handler, email, password string) {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLoginAndMe(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	loginAs(t, handler, "user@test.com", "123")

	rec = doJSON(t, handler, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me account.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "user@test.com", me.Email)
	assert.Empty(t, me.PasswordHash)
}

func TestLoginFailureStatus(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/auth/login", map[string]string{
		"email": "user@test.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var result session.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "Credenciales inválidas.", result.Message)
}

func TestProductsCRUDRequiresAdmin(t *testing.T) {
	handler, _ := newTestAPI(t)

	// Listing is public.
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Writing is not.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products",
		catalog.Product{ID: "#P100", Name: "Nuevo", Price: 1, Stock: 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	loginAs(t, handler, "admin@tav.cl", "Root123!")

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products",
		catalog.Product{ID: "#P100", Name: "Nuevo", Price: 1, Stock: 1})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate id conflicts with the canonical message.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products",
		catalog.Product{ID: "#P100", Name: "Otro", Price: 1, Stock: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "El ID del producto ya existe.")
}

func TestProductSearch(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products/search?q=cilindro", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var products []catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "#P001", products[0].ID)
}

func TestOrderPlacementBelongsToSession(t *testing.T) {
	handler, svc := newTestAPI(t)
	loginAs(t, handler, "user@test.com", "123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", orders.CreateParams{
		CustomerID: "#SPOOFED",
		Address:    "Av. Siempre Viva 123",
		Items:      []orders.Item{{ProductID: "#P001", Name: "Cilindro de Gas 5kg", Quantity: 2, Price: 12000}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, 24000.0, order.Total)
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.NotEqual(t, "#SPOOFED", order.CustomerID, "customer id comes from the session")

	mine, err := svc.Orders.ListByCustomer(context.Background(), order.CustomerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestActivityEndpointIsAdminOnly(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/activity", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	loginAs(t, handler, "admin@tav.cl", "Root123!")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/activity?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.NotEmpty(t, entries)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/activity?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartEndpoints(t *testing.T) {
	handler, _ := newTestAPI(t)
	loginAs(t, handler, "user@test.com", "123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/cart",
		cart.Line{ProductID: "#P001", Name: "Cilindro de Gas 5kg", Price: 12000, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	var view cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 24000.0, view.Total)

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/cart/%23P001", map[string]int{"cantidad": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 5, view.Lines[0].Quantity)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Empty(t, view.Lines)
}

func TestRootUserCannotBeDeletedOverHTTP(t *testing.T) {
	handler, _ := newTestAPI(t)
	loginAs(t, handler, "admin@tav.cl", "Root123!")

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/users/%23ADMIN_ROOT", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "El usuario root no puede ser eliminado.")
}

func TestLoginRateLimit(t *testing.T) {
	handler, _ := newTestAPI(t)

	var last int
	for i := 0; i < 11; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/auth/login", map[string]string{
			"email": "user@test.com", "password": "wrong",
		})
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last, "burst exhausted on the eleventh attempt")
}
