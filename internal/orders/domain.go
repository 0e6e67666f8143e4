// internal/orders/domain.go
package orders

import (
	"errors"
	"fmt"
	"time"
)

// Order statuses. Spanish values travel to the UI verbatim.
const (
	StatusPending   = "Pendiente"
	StatusEnRoute   = "En Camino"
	StatusDelivered = "Entregado"
	StatusCancelled = "Cancelado"
)

// DefaultPaymentMethod applies when an order arrives without one.
const DefaultPaymentMethod = "Efectivo"

var (
	ErrNotFound      = errors.New("Pedido no encontrado.")
	ErrInvalidStatus = errors.New("Estado de pedido inválido.")
	ErrEmptyOrder    = errors.New("El pedido no tiene productos.")
	ErrOutOfStock    = errors.New("Stock insuficiente.")
)

// Item is one order line.
type Item struct {
	ProductID string  `json:"productoId"`
	Name      string  `json:"nombre"`
	Quantity  int     `json:"cantidad"`
	Price     float64 `json:"precio"`
}

// Subtotal is the line total for one item.
func Subtotal(item Item) float64 {
	return item.Price * float64(item.Quantity)
}

// Total sums the line subtotals.
func Total(items []Item) float64 {
	var total float64
	for _, item := range items {
		total += Subtotal(item)
	}
	return total
}

// Order is a placed delivery order.
type Order struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"clienteId"`
	CustomerName  string    `json:"clienteNombre,omitempty"`
	CustomerPhone string    `json:"clienteTelefono,omitempty"`
	Address       string    `json:"direccion,omitempty"`
	Total         float64   `json:"total"`
	Status        string    `json:"estado"`
	CourierID     string    `json:"repartidorId,omitempty"`
	PaymentMethod string    `json:"metodoPago,omitempty"`
	Items         []Item    `json:"items"`
	PlacedAt      time.Time `json:"fecha"`
}

// NewOrderID derives the order id from the placement instant.
func NewOrderID(at time.Time) string {
	return fmt.Sprintf("#ORD-%d", at.UnixMilli())
}

// ValidStatus reports whether s is one of the known order states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusEnRoute, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
