// cmd/storefront/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"gasexpress/internal/account"
	"gasexpress/internal/audit"
	"gasexpress/internal/cart"
	"gasexpress/internal/catalog"
	"gasexpress/internal/clients"
	"gasexpress/internal/config"
	"gasexpress/internal/fallback"
	"gasexpress/internal/httpapi"
	"gasexpress/internal/kv"
	"gasexpress/internal/orders"
	"gasexpress/internal/seed"
	"gasexpress/internal/session"
	"gasexpress/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("trace flush failed", "error", err)
		}
	}()

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := seed.Initialize(ctx, store); err != nil {
		return err
	}

	trail := audit.NewTrail(store)

	// The users repository is consulted during login, so its client skips
	// the 401-refresh path instead of re-entering the session machine.
	usersRepo := repoFor[account.Account](cfg, store, nil, kv.KeyUsers, clients.UsersPath, "users")
	accounts := account.NewService(usersRepo, trail)
	sessions := session.NewService(store, accounts, trail)
	sessions.ConfigureTTL(cfg.SessionTTLMinutes)

	productsRepo := repoFor[catalog.Product](cfg, store, sessions, kv.KeyProducts, clients.ProductsPath, "products")
	ordersRepo := repoFor[orders.Order](cfg, store, sessions, kv.KeyOrders, clients.OrdersPath, "orders")

	cat := catalog.NewService(productsRepo, trail)
	ord := orders.NewService(ordersRepo, cat, trail)

	handler := httpapi.NewHandler(httpapi.Services{
		Sessions: sessions,
		Accounts: accounts,
		Catalog:  cat,
		Orders:   ord,
		Cart:     cart.New(store),
		Trail:    trail,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// openStore selects the persistence backend: Postgres when DATABASE_URL is
// set, the quota-bounded JSON file otherwise.
func openStore(cfg *config.Config) (kv.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := kv.NewPostgresStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("using postgres store")
		return store, func() { db.Close() }, nil
	}

	store, err := kv.NewFileStore(cfg.DataFile, cfg.StorageQuotaBytes)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using file store", "path", cfg.DataFile, "quota", cfg.StorageQuotaBytes)
	return store, func() {}, nil
}

// repoFor wires a collection repository: local-only without a remote base
// URL, remote-with-fallback otherwise.
func repoFor[T any](cfg *config.Config, store kv.Store, sessions session.Service, key, path, name string) kv.ListRepo[T] {
	local := kv.NewStoreList[T](store, key)
	if cfg.RemoteBaseURL == "" {
		return local
	}
	client := clients.New(cfg.RemoteBaseURL, store, sessions, clients.WithTimeout(cfg.RemoteTimeout))
	remote := clients.NewRemoteList[T](client, path)
	return fallback.New[T](name, remote, local)
}
