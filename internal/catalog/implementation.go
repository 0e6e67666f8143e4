// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"strings"

	"gasexpress/internal/audit"
	"gasexpress/internal/kv"
)

// Repository is the list port products persist through.
type Repository = kv.ListRepo[Product]

type service struct {
	repo  Repository
	trail *audit.Trail
}

// NewService creates a new catalog service instance.
func NewService(repo Repository, trail *audit.Trail) Service {
	return &service{repo: repo, trail: trail}
}

func (s *service) Add(ctx context.Context, product Product, actorID string) (*Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	for _, p := range products {
		if p.ID == product.ID {
			return nil, ErrIDTaken
		}
	}

	products = append(products, product)
	if err := s.repo.Replace(ctx, products); err != nil {
		return nil, fmt.Errorf("saving products: %w", err)
	}

	s.trail.Append(ctx, audit.KindProductCreate, map[string]any{
		"actorId":    actorOrSystem(actorID),
		"productoId": product.ID,
		"campos": map[string]any{
			"nombre":    product.Name,
			"precio":    product.Price,
			"stock":     product.Stock,
			"categoria": product.Category,
		},
	})
	return &product, nil
}

func (s *service) Update(ctx context.Context, id string, changes Changes, actorID string) (*Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	idx := indexByID(products, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	prev := products[idx]
	next := prev

	if changes.ID != nil && *changes.ID != id {
		for _, p := range products {
			if p.ID == *changes.ID {
				return nil, ErrIDTaken
			}
		}
		next.ID = *changes.ID
	}
	if changes.Name != nil {
		next.Name = *changes.Name
	}
	if changes.Price != nil {
		next.Price = *changes.Price
	}
	if changes.Stock != nil {
		next.Stock = *changes.Stock
	}
	if changes.Category != nil {
		next.Category = *changes.Category
	}
	if changes.Description != nil {
		next.Description = *changes.Description
	}

	products[idx] = next
	if err := s.repo.Replace(ctx, products); err != nil {
		return nil, fmt.Errorf("saving products: %w", err)
	}

	if diff := fieldChanges(prev, next); len(diff) > 0 {
		s.trail.Append(ctx, audit.KindProductChange, map[string]any{
			"actorId":    actorOrSystem(actorID),
			"productoId": next.ID,
			"cambios":    diff,
		})
	}
	return &next, nil
}

func (s *service) UpdateStock(ctx context.Context, id string, stock int, actorID string) (*Product, error) {
	return s.Update(ctx, id, Changes{Stock: &stock}, actorID)
}

func (s *service) UpdatePrice(ctx context.Context, id string, price float64, actorID string) (*Product, error) {
	return s.Update(ctx, id, Changes{Price: &price}, actorID)
}

func (s *service) Delete(ctx context.Context, id string, actorID string) error {
	products, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}
	idx := indexByID(products, id)
	if idx < 0 {
		return ErrNotFound
	}

	prev := products[idx]
	products = append(products[:idx], products[idx+1:]...)
	if err := s.repo.Replace(ctx, products); err != nil {
		return fmt.Errorf("saving products: %w", err)
	}

	s.trail.Append(ctx, audit.KindProductDelete, map[string]any{
		"actorId":    actorOrSystem(actorID),
		"productoId": id,
		"camposPrevios": map[string]any{
			"nombre": prev.Name,
			"precio": prev.Price,
			"stock":  prev.Stock,
		},
	})
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if idx := indexByID(products, id); idx >= 0 {
		p := products[idx]
		return &p, nil
	}
	return nil, ErrNotFound
}

func (s *service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Search filters by substring over name and category, case-insensitive. An
// empty query returns everything.
func (s *service) Search(ctx context.Context, query string) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return products, nil
	}
	var matches []Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Category), query) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func indexByID(products []Product, id string) int {
	for i, p := range products {
		if p.ID == id {
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

func fieldChanges(prev, next Product) []map[string]any {
	var diff []map[string]any
	add := func(field string, a, b any) {
		if a != b {
			diff = append(diff, map[string]any{"campo": field, "anterior": a, "nuevo": b})
		}
	}
	add("id", prev.ID, next.ID)
	add("nombre", prev.Name, next.Name)
	add("precio", prev.Price, next.Price)
	add("stock", prev.Stock, next.Stock)
	add("categoria", prev.Category, next.Category)
	add("descripcion", prev.Description, next.Description)
	return diff
}
