// internal/session/service.go
package session

import (
	"context"

	"gasexpress/internal/account"
)

// Result is the discriminated outcome of login and registration. Expected
// failures (bad credentials, lockout, duplicate email) come back as a
// failure Result, never as an error.
type Result struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Account *account.Account `json:"account,omitempty"`
}

// RegisterParams are the self-service registration inputs. Registered
// accounts are always customers.
type RegisterParams struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Phone    string          `json:"phone,omitempty"`
	Address  account.Address `json:"address,omitempty"`
}

// Service is the session state machine consumed by views and route guards.
type Service interface {
	// Login authenticates email/password, maintaining the per-email
	// failure counter and the five-strike lockout.
	Login(ctx context.Context, email, password string) Result

	// Register creates a customer account and immediately establishes it
	// as the current session; no separate login is required.
	Register(ctx context.Context, params RegisterParams) Result

	// Logout tears the session down. Unconditional and idempotent: with no
	// active session only the audit entry and navigation remain.
	Logout(ctx context.Context)

	// Verify returns the current account when the session is authentic and
	// satisfies requiredRole (admin satisfies any). It returns nil
	// otherwise, tearing storage down when the session is expired or
	// incomplete.
	Verify(ctx context.Context, requiredRole account.Role) *account.Account

	// Refresh re-issues the session token against the current session.
	// Returns false when there is no session left to refresh.
	Refresh(ctx context.Context) bool

	// ConfigureTTL sets the session lifetime and resets the stored expiry
	// deadline to now + minutes.
	ConfigureTTL(minutes int)
}
