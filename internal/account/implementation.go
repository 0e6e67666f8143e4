// internal/account/implementation.go
package account

import (
	"context"
	"fmt"
	"time"

	"gasexpress/internal/audit"
	"gasexpress/internal/kv"
)

// Repository is the list port accounts persist through.
type Repository = kv.ListRepo[Account]

// service implements the Service interface over the whole-list repository.
type service struct {
	repo  Repository
	trail *audit.Trail
	now   func() time.Time
}

// NewService creates a new accounts service instance.
func NewService(repo Repository, trail *audit.Trail) Service {
	return &service{repo: repo, trail: trail, now: time.Now}
}

// Create adds a new account. ActorID in params attributes the audit entry;
// system is assumed when empty.
func (s *service) Create(ctx context.Context, params CreateParams) (*Account, error) {
	if params.Role == "" {
		params.Role = RoleCustomer
	}
	if params.Status == "" {
		params.Status = StatusActive
	}
	if !ValidPhone(params.Phone) {
		return nil, ErrPhoneFormat
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Email == params.Email {
			return nil, ErrEmailTaken
		}
	}

	id := params.ID
	if id == "" {
		id = NewIDForRole(params.Role)
	}
	if !ValidIDForRole(params.Role, id) {
		return nil, ErrIDFormat
	}
	for _, a := range accounts {
		if a.ID == id {
			return nil, ErrIDTaken
		}
	}

	hash, salt, err := HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	acct := Account{
		ID:           id,
		Name:         params.Name,
		Email:        params.Email,
		Role:         params.Role,
		Status:       params.Status,
		Phone:        params.Phone,
		Address:      params.Address,
		RegisteredAt: s.now().UTC(),
		PasswordHash: hash,
		Salt:         salt,
	}

	accounts = append(accounts, acct)
	if err := s.repo.Replace(ctx, accounts); err != nil {
		return nil, fmt.Errorf("saving accounts: %w", err)
	}

	s.trail.Append(ctx, audit.KindUserCreate, map[string]any{
		"usuarioId": acct.ID,
		"campos": map[string]any{
			"name":   acct.Name,
			"email":  acct.Email,
			"role":   acct.Role,
			"status": acct.Status,
			"phone":  acct.Phone,
		},
	})
	return &acct, nil
}

// Update applies a partial edit. The root account is immutable and an admin
// cannot edit their own account from the panel.
func (s *service) Update(ctx context.Context, id string, changes Changes, actorID string) (*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	idx := indexByID(accounts, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	if accounts[idx].ID == RootID {
		return nil, ErrRootImmutable
	}
	if actorID != "" && actorID == id {
		return nil, ErrSelfEdit
	}

	prev := accounts[idx]
	next := prev

	if changes.ID != nil && *changes.ID != id {
		for _, a := range accounts {
			if a.ID == *changes.ID {
				return nil, ErrIDTaken
			}
		}
		targetRole := prev.Role
		if changes.Role != nil {
			targetRole = *changes.Role
		}
		if !ValidIDForRole(targetRole, *changes.ID) {
			return nil, ErrIDFormat
		}
		next.ID = *changes.ID
	}
	if changes.Name != nil {
		next.Name = *changes.Name
	}
	if changes.Email != nil {
		next.Email = *changes.Email
	}
	if changes.Role != nil {
		next.Role = *changes.Role
	}
	if changes.Status != nil {
		next.Status = *changes.Status
	}
	if changes.Phone != nil {
		if !ValidPhone(*changes.Phone) {
			return nil, ErrPhoneFormat
		}
		next.Phone = *changes.Phone
	}
	if changes.Address != nil {
		next.Address = *changes.Address
	}
	if changes.Password != nil {
		hash, salt, err := HashPassword(*changes.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		next.PasswordHash = hash
		next.Salt = salt
	}

	accounts[idx] = next
	if err := s.repo.Replace(ctx, accounts); err != nil {
		return nil, fmt.Errorf("saving accounts: %w", err)
	}

	if diff := fieldChanges(prev, next); len(diff) > 0 {
		s.trail.Append(ctx, audit.KindUserChange, map[string]any{
			"actorId":   actorOrSystem(actorID),
			"usuarioId": next.ID,
			"cambios":   diff,
		})
	}
	return &next, nil
}

func (s *service) Get(ctx context.Context, id string) (*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	if idx := indexByID(accounts, id); idx >= 0 {
		acct := accounts[idx]
		return &acct, nil
	}
	return nil, ErrNotFound
}

func (s *service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Email == email {
			acct := a
			return &acct, nil
		}
	}
	return nil, ErrNotFound
}

func (s *service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// SetStatus flips the lifecycle state directly; the root account is exempt.
// Used by the session module's lockout path and by admin lock/unlock.
func (s *service) SetStatus(ctx context.Context, id string, status Status) (*Account, error) {
	if id == RootID {
		return nil, ErrRootImmutable
	}
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	idx := indexByID(accounts, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	prev := accounts[idx].Status
	accounts[idx].Status = status
	if err := s.repo.Replace(ctx, accounts); err != nil {
		return nil, fmt.Errorf("saving accounts: %w", err)
	}

	if prev != status {
		s.trail.Append(ctx, audit.KindUserChange, map[string]any{
			"usuarioId": id,
			"cambios": []map[string]any{
				{"campo": "status", "anterior": prev, "nuevo": status},
			},
		})
	}
	acct := accounts[idx]
	return &acct, nil
}

// Delete removes an account. The root account can never be deleted,
// regardless of caller.
func (s *service) Delete(ctx context.Context, id string, actorID string) error {
	if id == RootID {
		return ErrRootUndeletable
	}
	if actorID != "" && actorID == id {
		return ErrSelfDelete
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	idx := indexByID(accounts, id)
	if idx < 0 {
		return ErrNotFound
	}

	prev := accounts[idx].Sanitized()
	accounts = append(accounts[:idx], accounts[idx+1:]...)
	if err := s.repo.Replace(ctx, accounts); err != nil {
		return fmt.Errorf("saving accounts: %w", err)
	}

	s.trail.Append(ctx, audit.KindUserDelete, map[string]any{
		"actorId":       actorOrSystem(actorID),
		"usuarioId":     id,
		"camposPrevios": prev,
	})
	return nil
}

// Authenticate verifies credentials, then the lifecycle state. The
// credential check runs first so a wrong password on a locked account does
// not reveal the lock.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Email != email {
			continue
		}
		ok, err := VerifyPassword(password, a.Salt, a.PasswordHash)
		if err != nil || !ok {
			return nil, ErrInvalidCredentials
		}
		if a.Status == StatusLocked {
			return nil, ErrAccountLocked
		}
		acct := a
		return &acct, nil
	}
	return nil, ErrInvalidCredentials
}

func indexByID(accounts []Account, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func actorOrSystem(actorID string) string {
	if actorID == "" {
		return audit.SystemActor
	}
	return actorID
}

// fieldChanges lists the fields that differ between two versions of an
// account, for the audit trail.
func fieldChanges(prev, next Account) []map[string]any {
	var diff []map[string]any
	add := func(field string, a, b any) {
		if a != b {
			diff = append(diff, map[string]any{"campo": field, "anterior": a, "nuevo": b})
		}
	}
	add("id", prev.ID, next.ID)
	add("name", prev.Name, next.Name)
	add("email", prev.Email, next.Email)
	add("role", prev.Role, next.Role)
	add("status", prev.Status, next.Status)
	add("phone", prev.Phone, next.Phone)
	add("address", prev.Address, next.Address)
	return diff
}
