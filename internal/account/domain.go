// internal/account/domain.go
package account

import (
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"time"
)

// RootID is the distinguished administrative account. It can never be
// deleted, demoted, or locked.
const RootID = "#ADMIN_ROOT"

// Role is the closed set of account roles.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
	RoleAdmin    Role = "admin"
)

// allows is the permission table consulted by role checks. Admin passes any
// required role.
var allows = map[Role]map[Role]bool{
	RoleAdmin:    {RoleAdmin: true, RoleCourier: true, RoleCustomer: true},
	RoleCourier:  {RoleCourier: true},
	RoleCustomer: {RoleCustomer: true},
}

// Allows reports whether an account with role r satisfies the required role.
// An empty requirement always passes.
func (r Role) Allows(required Role) bool {
	if required == "" {
		return true
	}
	return allows[r][required]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := allows[r]
	return ok
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive Status = "active"
	StatusLocked Status = "locked"
)

// Address is a delivery address.
type Address struct {
	Street  string `json:"street,omitempty"`
	Number  string `json:"number,omitempty"`
	Region  string `json:"region,omitempty"`
	Commune string `json:"commune,omitempty"`
}

// Account is a persisted storefront account. PasswordHash and Salt are
// storage concerns; hand callers outside the module a Sanitized copy.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	Phone        string    `json:"phone,omitempty"`
	Address      Address   `json:"address,omitempty"`
	RegisteredAt time.Time `json:"registeredAt,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Salt         string    `json:"salt,omitempty"`
}

// Sanitized returns a copy without credential material.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	a.Salt = ""
	return a
}

// User-facing failure messages, kept verbatim from the storefront.
var (
	ErrEmailTaken         = errors.New("El correo ya está registrado.")
	ErrNotFound           = errors.New("Usuario no encontrado.")
	ErrRootImmutable      = errors.New("El usuario root no puede ser modificado.")
	ErrRootUndeletable    = errors.New("El usuario root no puede ser eliminado.")
	ErrSelfEdit           = errors.New("No puedes editar tu propia cuenta desde el panel.")
	ErrSelfDelete         = errors.New("No puedes eliminar tu propia cuenta desde el panel.")
	ErrInvalidCredentials = errors.New("Credenciales inválidas.")
	ErrAccountLocked      = errors.New("Su cuenta está bloqueada. Contacte soporte.")
	ErrIDTaken            = errors.New("El nuevo ID de usuario ya existe.")
	ErrIDFormat           = errors.New("ID inválido para el rol seleccionado.")
	ErrPhoneFormat        = errors.New("Formato de teléfono inválido.")
)

var (
	phonePattern     = regexp.MustCompile(`^(\+56\s?9\s?\d{4}\s?\d{4}|\+?\d{8,12})$`)
	genericIDPattern = regexp.MustCompile(`^#[A-Z0-9-]{3,16}$`)
	customerID       = regexp.MustCompile(`^#U[A-Z0-9]{8}$`)
	courierID        = regexp.MustCompile(`^#R[A-Z0-9]{6}$`)
	courierLegacyID  = regexp.MustCompile(`^#R\d{3,}$`)
	adminID          = regexp.MustCompile(`^#ADMIN\d{4}$`)
	adminLegacyID    = regexp.MustCompile(`^#ADMIN$`)
)

// ValidPhone reports whether phone is acceptable. Empty is allowed.
func ValidPhone(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

// ValidIDForRole reports whether id matches the format assigned to role,
// accepting the legacy formats still present in older data.
func ValidIDForRole(role Role, id string) bool {
	if id == "" {
		return false
	}
	if id == RootID {
		return true
	}
	switch role {
	case RoleCustomer:
		return customerID.MatchString(id) || genericIDPattern.MatchString(id)
	case RoleCourier:
		return courierID.MatchString(id) || courierLegacyID.MatchString(id) || genericIDPattern.MatchString(id)
	case RoleAdmin:
		return adminID.MatchString(id) || adminLegacyID.MatchString(id) || genericIDPattern.MatchString(id)
	}
	return genericIDPattern.MatchString(id)
}

const (
	alnumUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits     = "0123456789"
)

// NewIDForRole allocates a fresh role-scoped identifier: customers get
// #U+8, couriers #R+6, admins #ADMIN+4 digits.
func NewIDForRole(role Role) string {
	switch role {
	case RoleCustomer:
		return "#U" + randomString(8, alnumUpper)
	case RoleCourier:
		return "#R" + randomString(6, alnumUpper)
	case RoleAdmin:
		return "#ADMIN" + randomString(4, digits)
	}
	return "#" + randomString(6, alnumUpper)
}

func randomString(n int, charset string) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform is broken; ids are
			// not security material, so fall back deterministically.
			out[i] = charset[0]
			continue
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out)
}
