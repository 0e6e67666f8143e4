// internal/catalog/domain.go
package catalog

import "errors"

// Product is a gas cylinder or accessory offered by the storefront.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"nombre"`
	Price       float64 `json:"precio"`
	Stock       int     `json:"stock"`
	Category    string  `json:"categoria,omitempty"`
	Description string  `json:"descripcion,omitempty"`
}

// User-facing messages. The storefront shows these verbatim, so the text is
// part of the contract.
var (
	ErrIDTaken  = errors.New("El ID del producto ya existe.")
	ErrNotFound = errors.New("Producto no encontrado.")
)

// Changes is a partial product edit; nil fields are left alone.
type Changes struct {
	ID          *string  `json:"id,omitempty"`
	Name        *string  `json:"nombre,omitempty"`
	Price       *float64 `json:"precio,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Category    *string  `json:"categoria,omitempty"`
	Description *string  `json:"descripcion,omitempty"`
}
