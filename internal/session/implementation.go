// internal/session/implementation.go
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gasexpress/internal/account"
	"gasexpress/internal/audit"
	"gasexpress/internal/kv"
)

// MsgLockedOut is returned once the failure counter for an email reaches the
// threshold.
const MsgLockedOut = "Cuenta bloqueada por múltiples intentos."

// LoginRoute is where the application is sent after logout.
const LoginRoute = "/iniciar-sesion"

// maxFailures is the consecutive-failure count that locks an account.
const maxFailures = 5

// DefaultTTLMinutes is the session lifetime applied on login.
const DefaultTTLMinutes = 30

// Navigator receives the route the application should move to after a
// session transition (logout). The default navigator does nothing, which
// suits embedded use; the HTTP layer installs its own.
type Navigator func(route string)

// service implements the Service interface. All state lives in the store;
// the struct itself only carries collaborators, so concurrent readers of
// the same store observe the same session.
type service struct {
	store      kv.Store
	accounts   account.Service
	trail      *audit.Trail
	navigate   Navigator
	ttl        time.Duration
	now        func() time.Time
	tracer     trace.Tracer
	failures   metric.Int64Counter
	lockouts   metric.Int64Counter
}

// Option configures the session service.
type Option func(*service)

// WithNavigator installs the post-logout navigation hook.
func WithNavigator(nav Navigator) Option {
	return func(s *service) { s.navigate = nav }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a session service over the given store and accounts
// service.
func NewService(store kv.Store, accounts account.Service, trail *audit.Trail, opts ...Option) Service {
	meter := otel.Meter("gasexpress/session")
	failures, _ := meter.Int64Counter("gasexpress.login.failures")
	lockouts, _ := meter.Int64Counter("gasexpress.login.lockouts")

	s := &service{
		store:    store,
		accounts: accounts,
		trail:    trail,
		navigate: func(string) {},
		ttl:      DefaultTTLMinutes * time.Minute,
		now:      time.Now,
		tracer:   otel.Tracer("gasexpress/session"),
		failures: failures,
		lockouts: lockouts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login drives the Anonymous -> Authenticated transition. The lockout check
// runs strictly before credential verification so a locked-out email never
// reveals whether the password was otherwise correct.
func (s *service) Login(ctx context.Context, email, password string) Result {
	ctx, span := s.tracer.Start(ctx, "session.login")
	defer span.End()

	attempts := s.loginAttempts()
	if attempts[email] >= maxFailures {
		s.lockAccountByEmail(ctx, email)
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "lockout")))
		return Result{Success: false, Message: MsgLockedOut}
	}

	acct, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, account.ErrAccountLocked) {
			// An already-locked account does not count further failures.
			attempts[email]++
			s.saveLoginAttempts(attempts)
			if attempts[email] >= maxFailures {
				s.lockAccountByEmail(ctx, email)
				s.lockouts.Add(ctx, 1)
			}
		}
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "credentials")))
		return Result{Success: false, Message: err.Error()}
	}

	attempts[email] = 0
	s.saveLoginAttempts(attempts)

	if err := s.establish(ctx, acct); err != nil {
		slog.Error("establishing session failed", "email", email, "error", err)
		return Result{Success: false, Message: account.ErrInvalidCredentials.Error()}
	}

	s.trail.Append(ctx, audit.KindLogin, map[string]any{
		"actorId":   acct.ID,
		"idUsuario": acct.ID,
		"email":     email,
	})
	sanitized := acct.Sanitized()
	return Result{Success: true, Account: &sanitized}
}

// Register creates a customer account and establishes it as the current
// session, equivalent to a successful login.
func (s *service) Register(ctx context.Context, params RegisterParams) Result {
	ctx, span := s.tracer.Start(ctx, "session.register")
	defer span.End()

	acct, err := s.accounts.Create(ctx, account.CreateParams{
		Name:     params.Name,
		Email:    params.Email,
		Password: params.Password,
		Role:     account.RoleCustomer,
		Status:   account.StatusActive,
		Phone:    params.Phone,
		Address:  params.Address,
	})
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}

	attempts := s.loginAttempts()
	attempts[params.Email] = 0
	s.saveLoginAttempts(attempts)

	if err := s.establish(ctx, acct); err != nil {
		slog.Error("establishing session after registration failed", "email", params.Email, "error", err)
		return Result{Success: false, Message: account.ErrInvalidCredentials.Error()}
	}

	s.trail.Append(ctx, audit.KindLogin, map[string]any{
		"actorId":   acct.ID,
		"idUsuario": acct.ID,
		"email":     acct.Email,
	})
	sanitized := acct.Sanitized()
	return Result{Success: true, Account: &sanitized}
}

// Logout clears the session keys and the cart, records the transition, and
// sends the application back to the login screen. Idempotent.
func (s *service) Logout(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "session.logout")
	defer span.End()

	actorID := ""
	var current account.Account
	if s.store.Get(kv.KeyCurrentUser, &current) {
		actorID = current.ID
	}

	s.teardown()

	detail := map[string]any{}
	if actorID != "" {
		detail["actorId"] = actorID
	}
	s.trail.Append(ctx, audit.KindLogout, detail)
	s.navigate(LoginRoute)
}

// Verify implements the authentication invariant: snapshot, token, and
// expiry must all be present and consistent.
func (s *service) Verify(ctx context.Context, requiredRole account.Role) *account.Account {
	var current account.Account
	if !s.store.Get(kv.KeyCurrentUser, &current) {
		return nil
	}

	var token string
	s.store.Get(kv.KeySessionToken, &token)
	if token == "" || !s.expiryValid() {
		// Incomplete or expired session: tear storage down, but without
		// the audit entry or navigation a logout carries.
		s.teardown()
		return nil
	}

	if claims, structured := decodeClaims(token); structured {
		// Structured token: its payload must decode, and its embedded
		// expiry and subject must agree with the rest of the session. A
		// mismatch is ambiguous enough that storage is left alone; the
		// caller just isn't let through.
		if claims == nil {
			return nil
		}
		if claims.ExpiresAt != nil && s.now().After(claims.ExpiresAt.Time) {
			return nil
		}
		if claims.Subject != "" && claims.Subject != current.ID {
			return nil
		}
	}

	if !current.Role.Allows(requiredRole) {
		return nil
	}
	return &current
}

// Refresh re-issues the token for the current session. It refuses when the
// session snapshot or deadline is gone.
func (s *service) Refresh(ctx context.Context) bool {
	var current account.Account
	if !s.store.Get(kv.KeyCurrentUser, &current) {
		return false
	}
	if !s.expiryValid() {
		return false
	}
	acct := current
	if err := s.establish(ctx, &acct); err != nil {
		return false
	}
	return true
}

// ConfigureTTL sets the session lifetime and resets the stored deadline.
func (s *service) ConfigureTTL(minutes int) {
	if minutes <= 0 {
		minutes = DefaultTTLMinutes
	}
	s.ttl = time.Duration(minutes) * time.Minute
	s.setExpiry()
}

// establish persists the three session pieces plus the CSRF token.
func (s *service) establish(ctx context.Context, acct *account.Account) error {
	csrf, err := newCSRFToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.ttl)
	token, err := signToken(acct.ID, string(acct.Role), csrf, expiresAt)
	if err != nil {
		return err
	}

	if err := s.store.Set(kv.KeyCurrentUser, acct.Sanitized()); err != nil {
		return err
	}
	if err := s.store.Set(kv.KeySessionToken, token); err != nil {
		return err
	}
	if err := s.store.Set(kv.KeyCSRFToken, csrf); err != nil {
		return err
	}
	s.setExpiry()
	return nil
}

// teardown clears the session keys and the cart. The current-user removal
// broadcasts auth-changed, the cart removal cart-updated.
func (s *service) teardown() {
	s.store.Remove(kv.KeyCurrentUser)
	s.store.Remove(kv.KeySessionToken)
	s.store.Remove(kv.KeyCSRFToken)
	s.store.Remove(kv.KeySessionExp)
	s.store.Remove(kv.KeyCart)
}

func (s *service) setExpiry() {
	deadline := s.now().Add(s.ttl).UnixMilli()
	if err := s.store.Set(kv.KeySessionExp, deadline); err != nil {
		slog.Warn("persisting session expiry failed", "error", err)
	}
}

func (s *service) expiryValid() bool {
	var deadline int64
	if !s.store.Get(kv.KeySessionExp, &deadline) {
		return false
	}
	return deadline > 0 && s.now().UnixMilli() < deadline
}

func (s *service) loginAttempts() map[string]int {
	attempts := map[string]int{}
	s.store.Get(kv.KeyLoginAttempts, &attempts)
	return attempts
}

func (s *service) saveLoginAttempts(attempts map[string]int) {
	if err := s.store.Set(kv.KeyLoginAttempts, attempts); err != nil {
		slog.Warn("persisting login attempts failed", "error", err)
	}
}

// lockAccountByEmail flips the matching account to locked. The root account
// is exempt and missing accounts are ignored.
func (s *service) lockAccountByEmail(ctx context.Context, email string) {
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil || acct.ID == account.RootID {
		return
	}
	if acct.Status == account.StatusLocked {
		return
	}
	if _, err := s.accounts.SetStatus(ctx, acct.ID, account.StatusLocked); err != nil {
		slog.Warn("locking account failed", "email", email, "error", err)
	}
}
