package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

type Order struct {
	ID              int64           `json:"id"`
	User            int64           `json:"user"`
	ConsumerName    string          `json:"consumer_name,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	DeliveryAddress string          `json:"delivery_address"`
	OrderNotes      string          `json:"order_notes"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items"`
	ItemCount       int             `json:"item_count"`
}

type OrderItem struct {
	ID              int64           `json:"id"`
	Product         int64           `json:"product"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// CheckoutLine is one entry of the checkout payload.
type CheckoutLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CheckoutRequest struct {
	DeliveryAddress string         `json:"delivery_address"`
	OrderNotes      string         `json:"order_notes"`
	CartItems       []CheckoutLine `json:"cart_items"`
}

func IsValidStatus(status OrderStatus) bool {
	_, ok := orderTransitions[status]
	return ok
}

// CanTransition reports whether the server may move an order from one
// status to another. Only forward moves are permitted.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status OrderStatus) bool {
	return IsValidStatus(status) && len(orderTransitions[status]) == 0
}
