// Package httpapi exposes the storefront over HTTP. Handlers stay thin:
// decode the request, call the service, encode the result. Authorization is
// delegated to the guard middleware.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gasexpress/internal/account"
	"gasexpress/internal/audit"
	"gasexpress/internal/cart"
	"gasexpress/internal/catalog"
	"gasexpress/internal/guard"
	"gasexpress/internal/orders"
	"gasexpress/internal/session"
)

// Services bundles everything the API serves.
type Services struct {
	Sessions session.Service
	Accounts account.Service
	Catalog  catalog.Service
	Orders   orders.Service
	Cart     *cart.Cart
	Trail    *audit.Trail
}

// Handler owns the route tree.
type Handler struct {
	svc Services
}

// NewHandler creates the API handler.
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// Router builds the chi route tree. Login and registration sit behind a
// per-IP rate limit; everything else behind role guards.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	requireAuth := guard.RequireRole(h.svc.Sessions, h.svc.Trail, "")
	requireAdmin := guard.RequireRole(h.svc.Sessions, h.svc.Trail, account.RoleAdmin)
	requireCourier := guard.RequireRole(h.svc.Sessions, h.svc.Trail, account.RoleCourier)
	requireCustomer := guard.RequireRole(h.svc.Sessions, h.svc.Trail, account.RoleCustomer)

	r.Route("/auth", func(r chi.Router) {
		limited := r.With(rateLimit(loginRatePerMinute, loginRateBurst))
		limited.Post("/login", h.handleLogin)
		limited.Post("/register", h.handleRegister)
		r.Post("/logout", h.handleLogout)
		r.Post("/refresh", h.handleRefresh)
		r.With(requireAuth).Get("/me", h.handleMe)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.handleListProducts)
			r.Get("/search", h.handleSearchProducts)
			r.Get("/{id}", h.handleGetProduct)
			r.With(requireAdmin).Post("/", h.handleAddProduct)
			r.With(requireAdmin).Patch("/{id}", h.handleUpdateProduct)
			r.With(requireAdmin).Delete("/{id}", h.handleDeleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(requireAdmin).Get("/", h.handleListOrders)
			r.With(requireCustomer).Post("/", h.handleCreateOrder)
			r.With(requireCustomer).Get("/mine", h.handleMyOrders)
			r.With(requireCourier).Get("/assigned", h.handleAssignedOrders)
			r.With(requireAuth).Get("/{id}", h.handleGetOrder)
			r.With(requireCourier).Patch("/{id}/status", h.handleUpdateOrderStatus)
			r.With(requireAdmin).Post("/{id}/courier", h.handleAssignCourier)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", h.handleListUsers)
			r.Post("/", h.handleCreateUser)
			r.Get("/{id}", h.handleGetUser)
			r.Patch("/{id}", h.handleUpdateUser)
			r.Delete("/{id}", h.handleDeleteUser)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireCustomer)
			r.Get("/", h.handleCartLines)
			r.Post("/", h.handleCartAdd)
			r.Put("/{productId}", h.handleCartSetQuantity)
			r.Delete("/{productId}", h.handleCartRemove)
			r.Delete("/", h.handleCartClear)
		})

		r.With(requireAdmin).Get("/activity", h.handleActivity)
	})

	return r
}

// urlParam returns a decoded route parameter. Entity ids start with '#' and
// travel percent-encoded.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respond(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, account.ErrIDTaken),
		errors.Is(err, catalog.ErrIDTaken):
		return http.StatusConflict
	case errors.Is(err, account.ErrRootImmutable),
		errors.Is(err, account.ErrRootUndeletable),
		errors.Is(err, account.ErrSelfEdit),
		errors.Is(err, account.ErrSelfDelete):
		return http.StatusForbidden
	case errors.Is(err, account.ErrIDFormat),
		errors.Is(err, account.ErrPhoneFormat),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrOutOfStock):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
