// internal/catalog/service.go
package catalog

import "context"

// Service is the product catalog consumed by the storefront views and the
// HTTP layer.
type Service interface {
	// Add inserts a product. A duplicate id is rejected with ErrIDTaken.
	Add(ctx context.Context, product Product, actorID string) (*Product, error)

	// Update applies a partial edit and records the changed fields.
	Update(ctx context.Context, id string, changes Changes, actorID string) (*Product, error)

	// UpdateStock sets the absolute stock level.
	UpdateStock(ctx context.Context, id string, stock int, actorID string) (*Product, error)

	// UpdatePrice sets the unit price.
	UpdatePrice(ctx context.Context, id string, price float64, actorID string) (*Product, error)

	// Delete removes a product.
	Delete(ctx context.Context, id string, actorID string) error

	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)

	// Search filters by case-insensitive substring over name and category.
	Search(ctx context.Context, query string) ([]Product, error)
}
