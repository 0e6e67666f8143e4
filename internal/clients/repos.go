// internal/clients/repos.go
package clients

import (
	"context"

	"gasexpress/internal/account"
	"gasexpress/internal/catalog"
	"gasexpress/internal/orders"
)

// Remote collection paths.
const (
	UsersPath    = "/api/v1/users"
	ProductsPath = "/api/v1/products"
	OrdersPath   = "/api/v1/orders"
)

// RemoteList serves a whole remote collection through the same list port the
// local store uses, so repositories are interchangeable.
type RemoteList[T any] struct {
	client *Client
	path   string
}

// NewRemoteList returns a list repository over the given collection path.
func NewRemoteList[T any](client *Client, path string) *RemoteList[T] {
	return &RemoteList[T]{client: client, path: path}
}

func (r *RemoteList[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.client.Get(ctx, r.path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *RemoteList[T]) Replace(ctx context.Context, items []T) error {
	return r.client.Put(ctx, r.path, items, nil)
}

// NewUsersRepo returns the remote account collection.
func NewUsersRepo(client *Client) *RemoteList[account.Account] {
	return NewRemoteList[account.Account](client, UsersPath)
}

// NewProductsRepo returns the remote product collection.
func NewProductsRepo(client *Client) *RemoteList[catalog.Product] {
	return NewRemoteList[catalog.Product](client, ProductsPath)
}

// NewOrdersRepo returns the remote order collection.
func NewOrdersRepo(client *Client) *RemoteList[orders.Order] {
	return NewRemoteList[orders.Order](client, OrdersPath)
}
