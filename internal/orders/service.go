// internal/orders/service.go
package orders

import "context"

// CreateParams are the order placement inputs. ID, Status, PaymentMethod,
// Total, and PlacedAt are filled in when absent.
type CreateParams struct {
	ID            string `json:"id,omitempty"`
	CustomerID    string `json:"clienteId"`
	CustomerName  string `json:"clienteNombre,omitempty"`
	CustomerPhone string `json:"clienteTelefono,omitempty"`
	Address       string `json:"direccion,omitempty"`
	PaymentMethod string `json:"metodoPago,omitempty"`
	Items         []Item `json:"items"`
}

// Service manages the order book.
type Service interface {
	// Create places an order, decrementing catalog stock per line. A line
	// exceeding the available stock rejects the whole order.
	Create(ctx context.Context, params CreateParams) (*Order, error)

	// UpdateStatus moves an order to a new state.
	UpdateStatus(ctx context.Context, id, status, actorID string) (*Order, error)

	// AssignCourier attaches a courier and moves the order en route.
	AssignCourier(ctx context.Context, id, courierID, actorID string) (*Order, error)

	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByCourier(ctx context.Context, courierID string) ([]Order, error)
}
