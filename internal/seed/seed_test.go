package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gasexpress/internal/account"
	"gasexpress/internal/audit"
	"gasexpress/internal/catalog"
	"gasexpress/internal/kv"
	"gasexpress/internal/orders"
	"gasexpress/internal/session"
)

func TestInitializeSeedsEmptyStore(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, Initialize(ctx, store))

	var accounts []account.Account
	require.True(t, store.Get(kv.KeyUsers, &accounts))
	require.Len(t, accounts, 5)
	assert.Equal(t, account.RootID, accounts[0].ID)
	assert.NotEmpty(t, accounts[0].PasswordHash, "seed passwords are hashed")
	assert.NotEqual(t, "Root123!", accounts[0].PasswordHash)

	var products []catalog.Product
	require.True(t, store.Get(kv.KeyProducts, &products))
	assert.Len(t, products, 5)

	var seeded []orders.Order
	require.True(t, store.Get(kv.KeyOrders, &seeded))
	require.Len(t, seeded, 2)
	assert.Equal(t, "#R050", seeded[1].CourierID)
}

func TestInitializeIsIdempotent(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, Initialize(ctx, store))

	var before []account.Account
	require.True(t, store.Get(kv.KeyUsers, &before))

	require.NoError(t, Initialize(ctx, store))

	var after []account.Account
	require.True(t, store.Get(kv.KeyUsers, &after))
	assert.Equal(t, before, after)
}

func TestInitializeRestoresMissingRoot(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, Initialize(ctx, store))

	var accounts []account.Account
	require.True(t, store.Get(kv.KeyUsers, &accounts))
	require.NoError(t, store.Set(kv.KeyUsers, accounts[1:]))

	require.NoError(t, Initialize(ctx, store))

	require.True(t, store.Get(kv.KeyUsers, &accounts))
	assert.Equal(t, account.RootID, accounts[0].ID)
	assert.Len(t, accounts, 5)
}

func TestSeededCredentialsWork(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, Initialize(ctx, store))

	trail := audit.NewTrail(store)
	accounts := account.NewService(kv.NewStoreList[account.Account](store, kv.KeyUsers), trail)
	sessions := session.NewService(store, accounts, trail)

	res := sessions.Login(ctx, "juan@example.com", "Juan123!")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "#U101", res.Account.ID)

	// Maria is seeded locked.
	res = sessions.Login(ctx, "maria@example.com", "Maria123!")
	assert.False(t, res.Success)
	assert.Equal(t, account.ErrAccountLocked.Error(), res.Message)
}
