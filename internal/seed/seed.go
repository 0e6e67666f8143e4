// Package seed installs the demo dataset on first start: the root admin, a
// panel admin, one courier, two customers, the cylinder catalog, and two
// orders. Seeding is idempotent per key and always re-inserts the root
// account when it has gone missing.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gasexpress/internal/account"
	"gasexpress/internal/catalog"
	"gasexpress/internal/kv"
	"gasexpress/internal/orders"
)

type seedUser struct {
	id       string
	name     string
	email    string
	role     account.Role
	password string
	status   account.Status
	phone    string
	address  account.Address
}

var seedUsers = []seedUser{
	{
		id: account.RootID, name: "Root Admin", email: "admin@tav.cl",
		role: account.RoleAdmin, password: "Root123!", status: account.StatusActive,
		phone: "+56 9 0000 0000",
	},
	{
		id: "#ADMIN", name: "Administrador", email: "admin@gasexpress.cl",
		role: account.RoleAdmin, password: "Admin123!", status: account.StatusActive,
		phone: "+56 9 0000 0001",
	},
	{
		id: "#R050", name: "Pedro El Rayo", email: "pedro@gasexpress.cl",
		role: account.RoleCourier, password: "Pedro123!", status: account.StatusActive,
		phone: "+56 9 1234 5678",
	},
	{
		id: "#U101", name: "Juan Pérez", email: "juan@example.com",
		role: account.RoleCustomer, password: "Juan123!", status: account.StatusActive,
		phone: "+56 9 8765 4321",
		address: account.Address{Street: "Av. Siempre Viva", Number: "123", Region: "Biobío", Commune: "Concepción"},
	},
	{
		id: "#U102", name: "Maria González", email: "maria@example.com",
		role: account.RoleCustomer, password: "Maria123!", status: account.StatusLocked,
		phone: "+56 9 1111 2222",
		address: account.Address{Street: "Collao", Number: "456", Region: "Biobío", Commune: "Concepción"},
	},
}

var seedProducts = []catalog.Product{
	{ID: "#P001", Name: "Gas 11 Kg", Price: 14500, Stock: 50, Category: "Normal",
		Description: "Cilindro de gas licuado de 11kg, ideal para estufas y cocinas domésticas. Formato tradicional y versátil para el hogar."},
	{ID: "#P002", Name: "Gas 15 Kg", Price: 19000, Stock: 30, Category: "Normal",
		Description: "Cilindro de 15kg con mayor autonomía. Perfecto para familias medianas y uso constante en calefacción y cocina."},
	{ID: "#P003", Name: "Gas 45 Kg", Price: 58000, Stock: 5, Category: "Industrial",
		Description: "Gran capacidad de 45kg para alto consumo. Recomendado para comercios, restaurantes o sistemas de calefacción central."},
	{ID: "#P004", Name: "Gas 5 Kg", Price: 8000, Stock: 100, Category: "Camping",
		Description: "Formato portátil de 5kg. Ligero y fácil de transportar, esencial para camping, parrillas móviles y estufas pequeñas."},
	{ID: "#P005", Name: "Catalítico 11 Kg", Price: 15500, Stock: 20, Category: "Catalítico",
		Description: "Cilindro especial para estufas catalíticas. Conexión rápida y segura para mantener tu hogar cálido en invierno."},
}

func seedOrders() []orders.Order {
	return []orders.Order{
		{
			ID: "#ORD-001", CustomerID: "#U101", CustomerName: "Juan Pérez",
			Address: "Av. Paicaví 123, Concepción", Total: 14500,
			Status: orders.StatusPending,
			Items: []orders.Item{{ProductID: "#P001", Name: "Gas 11 Kg", Quantity: 1, Price: 14500}},
			PlacedAt: time.Date(2023, 10, 8, 10, 15, 0, 0, time.UTC),
		},
		{
			ID: "#ORD-002", CustomerID: "#U102", CustomerName: "Maria González",
			Address: "Collao 456, Concepción", Total: 19000,
			Status: orders.StatusEnRoute, CourierID: "#R050",
			Items: []orders.Item{{ProductID: "#P002", Name: "Gas 15 Kg", Quantity: 1, Price: 19000}},
			PlacedAt: time.Date(2023, 10, 9, 14, 30, 0, 0, time.UTC),
		},
	}
}

// Initialize installs missing seed data. Existing keys are left alone except
// for the root account, which is restored when absent.
func Initialize(ctx context.Context, store kv.Store) error {
	if err := initializeUsers(store); err != nil {
		return err
	}

	var products []catalog.Product
	if !store.Get(kv.KeyProducts, &products) {
		if err := store.Set(kv.KeyProducts, seedProducts); err != nil {
			return fmt.Errorf("seeding products: %w", err)
		}
	}

	var existing []orders.Order
	if !store.Get(kv.KeyOrders, &existing) {
		if err := store.Set(kv.KeyOrders, seedOrders()); err != nil {
			return fmt.Errorf("seeding orders: %w", err)
		}
	}

	slog.Info("seed data verified")
	return nil
}

func initializeUsers(store kv.Store) error {
	var accounts []account.Account
	if !store.Get(kv.KeyUsers, &accounts) {
		for _, u := range seedUsers {
			acct, err := buildAccount(u)
			if err != nil {
				return err
			}
			accounts = append(accounts, acct)
		}
		return store.Set(kv.KeyUsers, accounts)
	}

	for _, acct := range accounts {
		if acct.ID == account.RootID {
			return nil
		}
	}

	// The root account went missing: put it back at the head of the list.
	root, err := buildAccount(seedUsers[0])
	if err != nil {
		return err
	}
	slog.Warn("root account missing, restoring")
	return store.Set(kv.KeyUsers, append([]account.Account{root}, accounts...))
}

func buildAccount(u seedUser) (account.Account, error) {
	hash, salt, err := account.HashPassword(u.password)
	if err != nil {
		return account.Account{}, fmt.Errorf("hashing seed password for %s: %w", u.id, err)
	}
	return account.Account{
		ID:           u.id,
		Name:         u.name,
		Email:        u.email,
		Role:         u.role,
		Status:       u.status,
		Phone:        u.phone,
		Address:      u.address,
		RegisteredAt: time.Now().UTC(),
		PasswordHash: hash,
		Salt:         salt,
	}, nil
}
