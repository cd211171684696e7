package domain

import (
	"github.com/shopspring/decimal"
)

// CartMode tells which side owns the cart.
type CartMode string

const (
	CartModeLocal  CartMode = "local"
	CartModeServer CartMode = "server"
)

// CartItem is the view of one cart line regardless of where the cart lives.
// UnitPrice is the price captured with the item, not a live catalog lookup.
type CartItem struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Product     *Product        `json:"product,omitempty"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LocalCartItem is the persisted shape of an anonymous cart line.
type LocalCartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// CartItem converts a local line to the common view. Local lines are
// addressed by product ID.
func (l LocalCartItem) CartItem() CartItem {
	snapshot := l.Product
	return CartItem{
		ID:          l.Product.ID,
		ProductID:   l.Product.ID,
		ProductName: l.Product.Name,
		UnitPrice:   l.Product.Price,
		Quantity:    l.Quantity,
		Product:     &snapshot,
	}
}

func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func CartCount(items []CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// CartCommand is one of AddToCart, SetQuantity, RemoveFromCart, ClearCart or ReplaceCart.
type CartCommand interface {
	cartCommand()
}

type AddToCart struct {
	Product  Product
	Quantity int
}

type SetQuantity struct {
	ProductID int64
	Quantity  int
}

type RemoveFromCart struct {
	ProductID int64
}

type ClearCart struct{}

type ReplaceCart struct {
	Items []LocalCartItem
}

func (AddToCart) cartCommand()      {}
func (SetQuantity) cartCommand()    {}
func (RemoveFromCart) cartCommand() {}
func (ClearCart) cartCommand()      {}
func (ReplaceCart) cartCommand()    {}

// ReduceCart applies cmd to items and returns the new cart. The input slice
// is never modified. The result holds at most one line per product and no
// line with a quantity below one.
func ReduceCart(items []LocalCartItem, cmd CartCommand) []LocalCartItem {
	switch c := cmd.(type) {
	case AddToCart:
		return addLine(clone(items), c.Product, c.Quantity)

	case SetQuantity:
		if c.Quantity <= 0 {
			return removeLine(items, c.ProductID)
		}
		next := clone(items)
		for i := range next {
			if next[i].Product.ID == c.ProductID {
				next[i].Quantity = c.Quantity
			}
		}
		return next

	case RemoveFromCart:
		return removeLine(items, c.ProductID)

	case ClearCart:
		return []LocalCartItem{}

	case ReplaceCart:
		next := []LocalCartItem{}
		for _, item := range c.Items {
			next = addLine(next, item.Product, item.Quantity)
		}
		return next

	default:
		return clone(items)
	}
}

func addLine(items []LocalCartItem, product Product, quantity int) []LocalCartItem {
	if quantity <= 0 {
		return items
	}
	for i := range items {
		if items[i].Product.ID == product.ID {
			items[i].Quantity += quantity
			return items
		}
	}
	return append(items, LocalCartItem{Product: product, Quantity: quantity})
}

func removeLine(items []LocalCartItem, productID int64) []LocalCartItem {
	next := make([]LocalCartItem, 0, len(items))
	for _, item := range items {
		if item.Product.ID != productID {
			next = append(next, item)
		}
	}
	return next
}

func clone(items []LocalCartItem) []LocalCartItem {
	next := make([]LocalCartItem, len(items))
	copy(next, items)
	return next
}
