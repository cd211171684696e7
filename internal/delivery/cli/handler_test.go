package cli

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/state"
	"storefront/internal/testutil/fakeapi"
	"storefront/internal/usecase"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCLI wires a handler the way cmd/main does, against a fake backend and
// a Redis-backed store shared across runs.
func newCLI(t *testing.T, base string, store repository.KeyValueStore) (*Handler, *bytes.Buffer) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st := state.New(repository.NewTokenRepository(store, "token", logger), logger)
	api, err := clients.NewAPIClient(base, 2*time.Second, clients.AuthHooks{Tokens: st, Unauthorized: st}, logger)
	require.NoError(t, err)

	session := usecase.NewSessionUseCase(st, clients.NewAuthClient(api, logger), usecase.SessionOptions{RegisterAutoLogin: true}, logger)
	cart := usecase.NewCartUseCase(st, clients.NewCartClient(api, logger),
		repository.NewCartRepository(store, "freshharvest_cart", logger), usecase.LoginCartMerge, logger)
	catalog := usecase.NewCatalogUseCase(clients.NewCatalogClient(api, logger), 12, logger)
	orderClient := clients.NewOrderClient(api, logger)
	checkout := usecase.NewCheckoutUseCase(orderClient, cart, logger)
	orders := usecase.NewOrderUseCase(orderClient, st, logger)

	session.Restore(context.Background())
	out := &bytes.Buffer{}
	return NewHandler(session, cart, catalog, checkout, orders, out, logger), out
}

func TestHandler_ShoppingFlow(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	fake := fakeapi.New(logger)
	base := fake.Start(t)
	fake.AddUser(1, "jane", "jane@x.com", "secret123")
	fake.AddProduct(domain.Product{ID: 1, Name: "Carrots", Price: decimal.RequireFromString("2.50"), IsAvailable: true})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := repository.NewRedisStore(client, "freshharvest:", logger)
	ctx := context.Background()

	run := func(args ...string) (string, error) {
		h, out := newCLI(t, base, store)
		err := h.Run(ctx, args)
		return out.String(), err
	}

	out, err := run("products")
	require.NoError(t, err)
	assert.Contains(t, out, "Carrots")
	assert.Contains(t, out, "Page 1 of 1 (1 products)")

	out, err = run("cart-add", "-product", "1", "-qty", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart mode: local")
	assert.Contains(t, out, "5.00")

	out, err = run("checkout", "-address", "1 Farm Lane")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Contains(t, out, "Please log in")

	out, err = run("login", "-email", "jane@x.com", "-password", "secret123")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as jane")
	assert.Equal(t, map[int64]int{1: 2}, fake.CartQuantities(1))

	out, err = run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "jane@x.com")

	out, err = run("checkout", "-address", "   ")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	out, err = run("checkout", "-address", "1 Farm Lane")
	require.NoError(t, err)
	assert.Contains(t, out, "5.00 (pending)")

	out, err = run("orders")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, err = run("cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")

	_, err = run("logout")
	require.NoError(t, err)
	out, err = run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestHandler_UnknownCommand(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	fake := fakeapi.New(logger)
	base := fake.Start(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h, out := newCLI(t, base, repository.NewRedisStore(client, "", logger))
	err := h.Run(context.Background(), []string{"teleport"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, out.String(), "cart-add -product N")

	err = h.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
