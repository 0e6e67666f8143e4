// internal/account/service.go
package account

import (
	"context"
)

// CreateParams are the inputs for creating an account. ID is optional; a
// role-scoped id is allocated when absent. Role defaults to customer and
// Status to active.
type CreateParams struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     Role
	Status   Status
	Phone    string
	Address  Address
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	ID       *string
	Name     *string
	Email    *string
	Password *string
	Role     *Role
	Status   *Status
	Phone    *string
	Address  *Address
}

// Service defines the interface for the accounts service.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*Account, error)
	Update(ctx context.Context, id string, changes Changes, actorID string) (*Account, error)
	Get(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	SetStatus(ctx context.Context, id string, status Status) (*Account, error)
	Delete(ctx context.Context, id string, actorID string) error
	Authenticate(ctx context.Context, email, password string) (*Account, error)
}
