package usecase

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoginCartPolicy(t *testing.T) {
	p, err := ParseLoginCartPolicy("merge")
	require.NoError(t, err)
	assert.Equal(t, LoginCartMerge, p)

	p, err = ParseLoginCartPolicy("discard")
	require.NoError(t, err)
	assert.Equal(t, LoginCartDiscard, p)

	_, err = ParseLoginCartPolicy("keep-both")
	assert.Error(t, err)
}

func TestCart_LocalMode(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	require.Equal(t, domain.CartModeLocal, h.cart.Mode())

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))
	require.NoError(t, h.cart.AddItem(ctx, carrots, 3))
	require.NoError(t, h.cart.AddItem(ctx, kale, 1))

	items := h.cart.Items()
	assert.Equal(t, map[int64]int{1: 5, 3: 1}, quantities(items))
	assert.Equal(t, "15.60", h.cart.Total().StringFixed(2))
	assert.Equal(t, 6, h.cart.Count())

	saved, err := h.cartRepo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	assert.ErrorIs(t, h.cart.AddItem(ctx, carrots, 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, h.cart.UpdateQuantity(ctx, 99, 2), domain.ErrItemNotFound)

	require.NoError(t, h.cart.UpdateQuantity(ctx, kale.ID, 4))
	require.NoError(t, h.cart.UpdateQuantity(ctx, carrots.ID, 0))
	assert.Equal(t, map[int64]int{3: 4}, quantities(h.cart.Items()))

	require.NoError(t, h.cart.AddItem(ctx, apples, 1))
	require.NoError(t, h.cart.UpdateQuantity(ctx, apples.ID, -1))
	assert.Equal(t, map[int64]int{3: 4}, quantities(h.cart.Items()), "a negative quantity removes the line")

	require.NoError(t, h.cart.RemoveItem(ctx, kale.ID))
	assert.Empty(t, h.cart.Items())

	assert.Empty(t, fake.RequestsTo(http.MethodGet, "/cart/items/"), "anonymous carts never touch the server")
}

func TestCart_LocalModeKeepsPriceAtCartTime(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))
	fake.SetPrice(carrots.ID, decimal.NewFromInt(9))

	items := h.cart.FetchCart(ctx)
	assert.Equal(t, "5.00", domain.CartTotal(items).StringFixed(2))
}

func TestCart_FirstMutationKeepsPersistedLines(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))

	// A second process sharing the same storage.
	fresh := NewCartUseCase(h.state, nil, h.cartRepo, LoginCartMerge, quietLogger())
	require.NoError(t, fresh.AddItem(ctx, apples, 1))
	assert.Equal(t, map[int64]int{1: 2, 2: 1}, quantities(fresh.Items()))
}

func TestCart_ServerMode(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, domain.CartModeServer, h.cart.Mode())

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))
	require.NoError(t, h.cart.AddItem(ctx, carrots, 3))
	assert.Equal(t, map[int64]int{1: 5}, fake.CartQuantities(1))
	assert.Len(t, fake.RequestsTo(http.MethodPost, "/cart/items/"), 1, "adding an existing product updates its line")

	items := h.cart.Items()
	require.Len(t, items, 1)
	lineID := items[0].ID
	assert.NotEqual(t, carrots.ID, lineID, "server lines are addressed by cart item ID")
	assert.Equal(t, "12.50", h.cart.Total().StringFixed(2))

	require.NoError(t, h.cart.UpdateQuantity(ctx, lineID, 1))
	assert.Equal(t, map[int64]int{1: 1}, fake.CartQuantities(1))

	require.NoError(t, h.cart.AddItem(ctx, apples, 1))
	require.NoError(t, h.cart.UpdateQuantity(ctx, lineID, 0))
	assert.Equal(t, map[int64]int{2: 1}, fake.CartQuantities(1))

	require.NoError(t, h.cart.AddItem(ctx, kale, 2))
	var kaleLine int64
	for _, item := range h.cart.Items() {
		if item.ProductID == kale.ID {
			kaleLine = item.ID
		}
	}
	require.NotZero(t, kaleLine)
	require.NoError(t, h.cart.UpdateQuantity(ctx, kaleLine, -3))
	assert.Equal(t, map[int64]int{2: 1}, fake.CartQuantities(1), "a negative quantity removes the line")
	assert.Empty(t, fake.RequestsTo(http.MethodPatch, fmt.Sprintf("/cart/items/%d/", kaleLine)))

	require.NoError(t, h.cart.Clear(ctx))
	assert.Empty(t, fake.CartQuantities(1))
	assert.Empty(t, h.cart.Items())

	saved, err := h.cartRepo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved, "authenticated carts are not persisted locally")
}

func TestCart_ServerModeErrorsSurfaceOnWrites(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	fake.FailNext(http.MethodPost, "/cart/items/", http.StatusBadRequest, map[string]any{"quantity": []string{"Not enough stock"}})
	assert.Error(t, h.cart.AddItem(ctx, carrots, 1))
	assert.Error(t, h.cart.RemoveItem(ctx, 424242))
}

func TestCart_AddExistingProductAfterFailedFetch(t *testing.T) {
	fake, base := newFake(t)
	seedServerCart(t, fake, base, "jane@x.com", map[int64]int{1: 2})
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	fake.FailNext(http.MethodGet, "/cart/items/", http.StatusInternalServerError, nil)
	require.Empty(t, h.cart.FetchCart(ctx))

	require.NoError(t, h.cart.AddItem(ctx, carrots, 3))
	assert.Equal(t, map[int64]int{1: 5}, fake.CartQuantities(1))
	assert.Len(t, fake.RequestsTo(http.MethodPost, "/cart/items/"), 1, "only the seeding request posted")
	assert.Equal(t, map[int64]int{1: 5}, quantities(h.cart.Items()))
}

func TestCart_FetchFailureYieldsEmptyCart(t *testing.T) {
	fake, base := newFake(t)
	seedServerCart(t, fake, base, "jane@x.com", map[int64]int{1: 2})
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)
	require.Len(t, h.cart.Items(), 1)

	fake.FailNext(http.MethodGet, "/cart/items/", http.StatusInternalServerError, nil)
	assert.Empty(t, h.cart.FetchCart(ctx))
	assert.True(t, h.session.IsAuthenticated())

	assert.Len(t, h.cart.FetchCart(ctx), 1)
}

func TestCart_UnauthorizedFetchClearsSession(t *testing.T) {
	fake, base := newFake(t)
	seedServerCart(t, fake, base, "jane@x.com", map[int64]int{1: 2})
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	fake.RevokeToken(h.session.Snapshot().Token)
	items := h.cart.FetchCart(ctx)

	assert.Empty(t, items)
	assert.False(t, h.session.IsAuthenticated())
	assert.Equal(t, domain.CartModeLocal, h.cart.Mode())
	persisted, _ := h.tokens.Load(ctx)
	assert.Empty(t, persisted)

	before := len(fake.Requests())
	assert.Empty(t, h.cart.FetchCart(ctx))
	assert.Len(t, fake.Requests(), before, "a local cart fetch makes no request")
}

func TestCart_EnvelopeResponse(t *testing.T) {
	fake, base := newFake(t)
	seedServerCart(t, fake, base, "jane@x.com", map[int64]int{1: 2, 2: 1})
	fake.EnvelopeCart = true
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, map[int64]int{1: 2, 2: 1}, quantities(h.cart.FetchCart(ctx)))
}

func TestCart_LoginMergesLocalCart(t *testing.T) {
	fake, base := newFake(t)
	seedServerCart(t, fake, base, "jane@x.com", map[int64]int{1: 1, 2: 4})
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))
	require.NoError(t, h.cart.AddItem(ctx, kale, 1))

	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, map[int64]int{1: 3, 2: 4, 3: 1}, fake.CartQuantities(1))
	assert.Equal(t, map[int64]int{1: 3, 2: 4, 3: 1}, quantities(h.cart.Items()))

	saved, err := h.cartRepo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)

	h.session.Logout(ctx)
	assert.Equal(t, domain.CartModeLocal, h.cart.Mode())
	assert.Empty(t, h.cart.Items(), "the cart is empty after logout")
}

func TestCart_LoginDiscardsLocalCart(t *testing.T) {
	fake, base := newFake(t)
	seedServerCart(t, fake, base, "jane@x.com", map[int64]int{2: 4})
	h := newHarness(t, fake, base, withPolicy(LoginCartDiscard))
	ctx := context.Background()
	h.session.Restore(ctx)

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))

	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, map[int64]int{2: 4}, fake.CartQuantities(1))
	assert.Equal(t, map[int64]int{2: 4}, quantities(h.cart.Items()))
	assert.Empty(t, fake.RequestsTo(http.MethodPost, "/cart/items/")[1:], "only the seeding request posted")
}

func TestCart_LoginKeepsLinesThatFailToMerge(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))

	fake.FailNext(http.MethodPost, "/cart/items/", http.StatusServiceUnavailable, nil)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	assert.Empty(t, fake.CartQuantities(1))
	assert.Empty(t, h.cart.Items())

	saved, err := h.cartRepo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, carrots.ID, saved[0].Product.ID)
	assert.Equal(t, 2, saved[0].Quantity)

	h.session.Logout(ctx)
	assert.Equal(t, map[int64]int{1: 2}, quantities(h.cart.Items()), "unmerged lines return as the anonymous cart")

	_, err = h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 2}, fake.CartQuantities(1), "the next login merges them")
	saved, err = h.cartRepo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestCart_LoginKeepsLocalCartWhenServerCartUnreadable(t *testing.T) {
	fake, base := newFake(t)
	h := newHarness(t, fake, base)
	ctx := context.Background()
	h.session.Restore(ctx)

	require.NoError(t, h.cart.AddItem(ctx, carrots, 2))
	require.NoError(t, h.cart.AddItem(ctx, kale, 1))

	fake.FailNext(http.MethodGet, "/cart/items/", http.StatusInternalServerError, nil)
	_, err := h.session.Login(ctx, "jane@x.com", "secret123")
	require.NoError(t, err)

	assert.Empty(t, fake.RequestsTo(http.MethodPost, "/cart/items/"))
	saved, err := h.cartRepo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}
