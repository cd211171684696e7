package usecase

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/state"
	"storefront/internal/testutil/fakeapi"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	carrots = domain.Product{ID: 1, Name: "Carrots", Price: decimal.RequireFromString("2.50"), Category: 1, IsAvailable: true}
	apples  = domain.Product{ID: 2, Name: "Apples", Price: decimal.RequireFromString("4.00"), Category: 2, IsAvailable: true}
	kale    = domain.Product{ID: 3, Name: "Kale", Price: decimal.RequireFromString("3.10"), Category: 1, IsAvailable: true}
)

type harness struct {
	fake     *fakeapi.Server
	store    *repository.FileStore
	tokens   *repository.TokenRepository
	cartRepo *repository.CartRepository
	state    *state.State
	api      *clients.APIClient
	session  *SessionUseCase
	cart     *CartUseCase
	catalog  *CatalogUseCase
	checkout *CheckoutUseCase
	orders   *OrderUseCase
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	policy    LoginCartPolicy
	autoLogin bool
	token     string
}

func withPolicy(p LoginCartPolicy) harnessOption {
	return func(c *harnessConfig) { c.policy = p }
}

func withoutAutoLogin() harnessOption {
	return func(c *harnessConfig) { c.autoLogin = false }
}

// withPersistedToken stores a token before the session is built.
func withPersistedToken(token string) harnessOption {
	return func(c *harnessConfig) { c.token = token }
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFake(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake := fakeapi.New(quietLogger())
	base := fake.Start(t)
	fake.AddUser(1, "jane", "jane@x.com", "secret123")
	fake.AddCategory(domain.Category{ID: 1, Name: "Vegetables", Slug: "vegetables"})
	fake.AddCategory(domain.Category{ID: 2, Name: "Fruit", Slug: "fruit"})
	for _, p := range []domain.Product{carrots, apples, kale} {
		fake.AddProduct(p)
	}
	return fake, base
}

func newHarness(t *testing.T, fake *fakeapi.Server, base string, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{policy: LoginCartMerge, autoLogin: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := quietLogger()
	ctx := context.Background()
	store, err := repository.NewFileStore(filepath.Join(t.TempDir(), "store"), logger)
	require.NoError(t, err)

	h := &harness{fake: fake, store: store}
	h.tokens = repository.NewTokenRepository(store, "token", logger)
	h.cartRepo = repository.NewCartRepository(store, "freshharvest_cart", logger)
	if cfg.token != "" {
		require.NoError(t, h.tokens.Save(ctx, cfg.token))
	}

	h.state = state.New(h.tokens, logger)
	h.api, err = clients.NewAPIClient(base, 2*time.Second, clients.AuthHooks{Tokens: h.state, Unauthorized: h.state}, logger)
	require.NoError(t, err)

	orderClient := clients.NewOrderClient(h.api, logger)
	h.session = NewSessionUseCase(h.state, clients.NewAuthClient(h.api, logger), SessionOptions{RegisterAutoLogin: cfg.autoLogin}, logger)
	h.cart = NewCartUseCase(h.state, clients.NewCartClient(h.api, logger), h.cartRepo, cfg.policy, logger)
	h.catalog = NewCatalogUseCase(clients.NewCatalogClient(h.api, logger), 0, logger)
	h.checkout = NewCheckoutUseCase(orderClient, h.cart, logger)
	h.orders = NewOrderUseCase(orderClient, h.state, logger)
	return h
}

// seedServerCart puts lines in the user's server cart behind the session's back.
func seedServerCart(t *testing.T, fake *fakeapi.Server, base, email string, lines map[int64]int) {
	t.Helper()
	token := fake.IssueToken(email)
	api, err := clients.NewAPIClient(base, 2*time.Second, clients.AuthHooks{Tokens: staticToken(token)}, quietLogger())
	require.NoError(t, err)
	cart := clients.NewCartClient(api, quietLogger())
	for productID, qty := range lines {
		require.NoError(t, cart.AddItem(context.Background(), productID, qty))
	}
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func quantities(items []domain.CartItem) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, item := range items {
		out[item.ProductID] = item.Quantity
	}
	return out
}
