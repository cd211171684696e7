package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, price string) Product {
	return Product{ID: id, Name: "Product", Price: decimal.RequireFromString(price)}
}

func TestReduceCart_AddMergesSameProduct(t *testing.T) {
	p := product(7, "3.50")

	cart := ReduceCart(nil, AddToCart{Product: p, Quantity: 2})
	cart = ReduceCart(cart, AddToCart{Product: p, Quantity: 3})

	require.Len(t, cart, 1)
	assert.Equal(t, int64(7), cart[0].Product.ID)
	assert.Equal(t, 5, cart[0].Quantity)
}

func TestReduceCart_AddIgnoresNonPositiveQuantity(t *testing.T) {
	cart := ReduceCart(nil, AddToCart{Product: product(1, "1"), Quantity: 0})
	assert.Empty(t, cart)
}

func TestReduceCart_SetQuantity(t *testing.T) {
	start := []LocalCartItem{
		{Product: product(1, "1"), Quantity: 1},
		{Product: product(2, "2"), Quantity: 4},
	}

	tests := []struct {
		name     string
		cmd      CartCommand
		expected map[int64]int
	}{
		{"set positive", SetQuantity{ProductID: 2, Quantity: 9}, map[int64]int{1: 1, 2: 9}},
		{"set zero removes", SetQuantity{ProductID: 2, Quantity: 0}, map[int64]int{1: 1}},
		{"set negative removes", SetQuantity{ProductID: 1, Quantity: -3}, map[int64]int{2: 4}},
		{"unknown product is a no-op", SetQuantity{ProductID: 99, Quantity: 5}, map[int64]int{1: 1, 2: 4}},
		{"remove", RemoveFromCart{ProductID: 1}, map[int64]int{2: 4}},
		{"clear", ClearCart{}, map[int64]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := ReduceCart(start, tt.cmd)
			got := make(map[int64]int, len(next))
			for _, line := range next {
				got[line.Product.ID] = line.Quantity
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, 1, start[0].Quantity, "input must not be modified")
			assert.Equal(t, 4, start[1].Quantity, "input must not be modified")
		})
	}
}

func TestReduceCart_ReplaceDeduplicates(t *testing.T) {
	cart := ReduceCart(nil, ReplaceCart{Items: []LocalCartItem{
		{Product: product(1, "1"), Quantity: 2},
		{Product: product(1, "1"), Quantity: 1},
		{Product: product(3, "1"), Quantity: 0},
	}})

	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)
}

func TestReduceCart_ClearReturnsEmptySlice(t *testing.T) {
	cart := ReduceCart(nil, ClearCart{})
	assert.NotNil(t, cart)
	assert.Empty(t, cart)
}

func TestCartTotal(t *testing.T) {
	items := []CartItem{
		{ProductID: 1, UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		{ProductID: 2, UnitPrice: decimal.NewFromInt(50), Quantity: 1},
	}

	assert.True(t, decimal.NewFromInt(250).Equal(CartTotal(items)))
	assert.Equal(t, 3, CartCount(items))
	assert.True(t, CartTotal(nil).IsZero())
}

func TestLocalCartItem_CartItemSnapshotsProduct(t *testing.T) {
	line := LocalCartItem{Product: product(4, "2.25"), Quantity: 2}

	item := line.CartItem()
	line.Product.Price = decimal.NewFromInt(10)

	assert.Equal(t, int64(4), item.ID)
	assert.Equal(t, int64(4), item.ProductID)
	assert.Equal(t, "4.50", item.Subtotal().StringFixed(2))
	require.NotNil(t, item.Product)
	assert.Equal(t, "2.25", item.Product.Price.StringFixed(2))
}
