// internal/orders/implementation.go
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gasexpress/internal/audit"
	"gasexpress/internal/catalog"
	"gasexpress/internal/kv"
)

// Repository is the list port orders persist through.
type Repository = kv.ListRepo[Order]

type service struct {
	repo    Repository
	catalog catalog.Service
	trail   *audit.Trail
	now     func() time.Time
}

// Option configures the orders service.
type Option func(*service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new orders service instance. The catalog service is
// consulted for stock on placement.
func NewService(repo Repository, cat catalog.Service, trail *audit.Trail, opts ...Option) Service {
	s := &service{repo: repo, catalog: cat, trail: trail, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create places an order. Stock is decremented line by line before the order
// is saved; a failed save rolls the decrements back.
func (s *service) Create(ctx context.Context, params CreateParams) (*Order, error) {
	if len(params.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	// Validate every line before touching stock.
	for _, item := range params.Items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolving product %s: %w", item.ProductID, err)
		}
		if item.Quantity <= 0 || product.Stock < item.Quantity {
			return nil, ErrOutOfStock
		}
	}

	var decremented []Item
	compensate := func() {
		for _, item := range decremented {
			product, err := s.catalog.Get(ctx, item.ProductID)
			if err != nil {
				slog.Error("stock rollback failed", "productId", item.ProductID, "error", err)
				continue
			}
			if _, err := s.catalog.UpdateStock(ctx, item.ProductID, product.Stock+item.Quantity, ""); err != nil {
				slog.Error("stock rollback failed", "productId", item.ProductID, "error", err)
			}
		}
	}

	for _, item := range params.Items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			compensate()
			return nil, fmt.Errorf("resolving product %s: %w", item.ProductID, err)
		}
		if product.Stock < item.Quantity {
			compensate()
			return nil, ErrOutOfStock
		}
		if _, err := s.catalog.UpdateStock(ctx, item.ProductID, product.Stock-item.Quantity, ""); err != nil {
			compensate()
			return nil, fmt.Errorf("decrementing stock for %s: %w", item.ProductID, err)
		}
		decremented = append(decremented, item)
	}

	placedAt := s.now().UTC()
	order := Order{
		ID:            params.ID,
		CustomerID:    params.CustomerID,
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		Address:       params.Address,
		Total:         Total(params.Items),
		Status:        StatusPending,
		PaymentMethod: params.PaymentMethod,
		Items:         params.Items,
		PlacedAt:      placedAt,
	}
	if order.ID == "" {
		order.ID = NewOrderID(placedAt)
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = DefaultPaymentMethod
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		compensate()
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	all = append(all, order)
	if err := s.repo.Replace(ctx, all); err != nil {
		compensate()
		return nil, fmt.Errorf("saving orders: %w", err)
	}

	s.trail.Append(ctx, audit.KindOrderCreate, map[string]any{
		"actorId":  actorOrSystem(params.CustomerID),
		"pedidoId": order.ID,
		"total":    order.Total,
		"items":    len(order.Items),
	})
	return &order, nil
}

func (s *service) UpdateStatus(ctx context.Context, id, status, actorID string) (*Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.mutate(ctx, id, actorID, func(o *Order) []map[string]any {
		if o.Status == status {
			return nil
		}
		prev := o.Status
		o.Status = status
		return []map[string]any{
			{"campo": "estado", "anterior": prev, "nuevo": status},
		}
	})
}

func (s *service) AssignCourier(ctx context.Context, id, courierID, actorID string) (*Order, error) {
	return s.mutate(ctx, id, actorID, func(o *Order) []map[string]any {
		var diff []map[string]any
		if o.CourierID != courierID {
			diff = append(diff, map[string]any{"campo": "repartidorId", "anterior": o.CourierID, "nuevo": courierID})
			o.CourierID = courierID
		}
		if o.Status == StatusPending {
			diff = append(diff, map[string]any{"campo": "estado", "anterior": o.Status, "nuevo": StatusEnRoute})
			o.Status = StatusEnRoute
		}
		return diff
	})
}

// mutate applies an in-place edit to one order and records the field-level
// changes it reports.
func (s *service) mutate(ctx context.Context, id, actorID string, edit func(*Order) []map[string]any) (*Order, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	idx := indexByID(all, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	diff := edit(&all[idx])
	if len(diff) == 0 {
		order := all[idx]
		return &order, nil
	}
	if err := s.repo.Replace(ctx, all); err != nil {
		return nil, fmt.Errorf("saving orders: %w", err)
	}

	s.trail.Append(ctx, audit.KindOrderChange, map[string]any{
		"actorId":  actorOrSystem(actorID),
		"pedidoId": id,
		"cambios":  diff,
	})
	order := all[idx]
	return &order, nil
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if idx := indexByID(all, id); idx >= 0 {
		order := all[idx]
		return &order, nil
	}
	return nil, ErrNotFound
}

func (s *service) List(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

func (s *service) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.filter(ctx, func(o Order) bool { return o.CustomerID == customerID })
}

func (s *service) ListByCourier(ctx context.Context, courierID string) ([]Order, error) {
	return s.filter(ctx, func(o Order) bool { return o.CourierID == courierID })
}

func (s *service) filter(ctx context.Context, keep func(Order) bool) ([]Order, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	var matches []Order
	for _, o := range all {
		if keep(o) {
			matches = append(matches, o)
		}
	}
	return matches, nil
}

func indexByID(all []Order, id string) int {
	for i, o := range all {
		if o.ID == id {
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
