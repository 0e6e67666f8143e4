// Package guard protects HTTP routes with the session state machine. A
// browser-style request that fails the check is silently redirected to the
// landing route its role is entitled to; an API request gets a JSON status.
// Every denial is recorded in the activity trail.
package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"gasexpress/internal/account"
	"gasexpress/internal/audit"
	"gasexpress/internal/session"
)

// Landing routes per role.
const (
	RouteLogin    = "/iniciar-sesion"
	RouteStore    = "/tienda"
	RouteCourier  = "/repartidor"
	RouteAdmin    = "/admin"
)

type contextKey struct{}

// AccountFrom returns the account the guard attached to the request context.
func AccountFrom(ctx context.Context) *account.Account {
	acct, _ := ctx.Value(contextKey{}).(*account.Account)
	return acct
}

// LandingRoute is where a role is sent when it reaches a door it cannot
// open.
func LandingRoute(role account.Role) string {
	switch role {
	case account.RoleAdmin:
		return RouteAdmin
	case account.RoleCourier:
		return RouteCourier
	case account.RoleCustomer:
		return RouteStore
	}
	return RouteLogin
}

// RequireRole returns chi middleware that admits sessions satisfying the
// required role (admin satisfies any). Pass an empty role to require only a
// valid session.
func RequireRole(sessions session.Service, trail *audit.Trail, required account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			current := sessions.Verify(ctx, "")
			if current == nil {
				deny(w, r, trail, nil, required, http.StatusUnauthorized, RouteLogin)
				return
			}
			if !current.Role.Allows(required) {
				deny(w, r, trail, current, required, http.StatusForbidden, LandingRoute(current.Role))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, contextKey{}, current)))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, trail *audit.Trail, current *account.Account, required account.Role, status int, route string) {
	detail := map[string]any{
		"ruta":         r.URL.Path,
		"rolRequerido": string(required),
	}
	if current != nil {
		detail["actorId"] = current.ID
	}
	trail.Append(r.Context(), audit.KindAccessDenied, detail)

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status)})
		return
	}
	http.Redirect(w, r, route, http.StatusFound)
}

// wantsJSON distinguishes API calls from browser navigation.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
