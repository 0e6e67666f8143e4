// Package cart keeps the shopping cart as a line list under the cart key.
// Cart writes are low-priority: the store may evict them under quota
// pressure, and every operation tolerates starting from an empty list.
package cart

import (
	"log/slog"

	"gasexpress/internal/kv"
)

// Line is one cart entry.
type Line struct {
	ProductID string  `json:"productoId"`
	Name      string  `json:"nombre"`
	Price     float64 `json:"precio"`
	Quantity  int     `json:"cantidad"`
}

// Cart reads and writes the cart key. Writes broadcast the cart-updated
// signal through the store.
type Cart struct {
	store kv.Store
}

// New returns a cart over the given store.
func New(store kv.Store) *Cart {
	return &Cart{store: store}
}

// Lines returns the current cart, empty when the key is missing or was
// evicted.
func (c *Cart) Lines() []Line {
	var lines []Line
	c.store.Get(kv.KeyCart, &lines)
	return lines
}

// Total is the cart total in currency units.
func (c *Cart) Total() float64 {
	var total float64
	for _, line := range c.Lines() {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// Add merges quantity into an existing line for the product or appends a new
// one.
func (c *Cart) Add(line Line) {
	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	lines := c.Lines()
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity += line.Quantity
			c.save(lines)
			return
		}
	}
	c.save(append(lines, line))
}

// SetQuantity pins the quantity of a line; zero or less removes it.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	lines := c.Lines()
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			c.save(lines)
			return
		}
	}
}

// Remove drops the line for the product.
func (c *Cart) Remove(productID string) {
	lines := c.Lines()
	for i := range lines {
		if lines[i].ProductID == productID {
			c.save(append(lines[:i], lines[i+1:]...))
			return
		}
	}
}

// Clear empties the cart. Removal still broadcasts cart-updated.
func (c *Cart) Clear() {
	c.store.Remove(kv.KeyCart)
}

// save persists the lines. Quota failures are logged and swallowed: a lost
// cart is an accepted degradation of the storage model.
func (c *Cart) save(lines []Line) {
	if err := c.store.Set(kv.KeyCart, lines); err != nil {
		slog.Warn("cart write dropped", "lines", len(lines), "error", err)
	}
}
