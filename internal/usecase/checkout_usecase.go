package usecase

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/clients"
	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

const msgCheckoutFailed = "Checkout failed"

// CartClearer is what checkout needs from the cart.
type CartClearer interface {
	Clear(ctx context.Context) error
}

type CheckoutUseCase struct {
	orders clients.OrderClient
	cart   CartClearer
	log    *logrus.Logger
}

func NewCheckoutUseCase(orders clients.OrderClient, cart CartClearer, logger *logrus.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{orders: orders, cart: cart, log: logger}
}

// Checkout validates locally, then asks the server to turn items into an
// order. The cart is cleared only when the order was created.
func (uc *CheckoutUseCase) Checkout(ctx context.Context, deliveryAddress, orderNotes string, items []domain.CartItem) (*domain.Order, error) {
	address := strings.TrimSpace(deliveryAddress)
	if address == "" {
		uc.log.Warn("Use Case: Checkout rejected - empty delivery address")
		return nil, &domain.ValidationError{
			Message: "Please enter delivery address",
			Fields:  map[string][]string{"delivery_address": {"This field may not be blank."}},
		}
	}
	if len(items) == 0 {
		uc.log.Warn("Use Case: Checkout rejected - cart is empty")
		return nil, &domain.ValidationError{
			Message: "Cart is empty",
			Fields:  map[string][]string{"cart_items": {"Cart is empty"}},
		}
	}

	req := domain.CheckoutRequest{
		DeliveryAddress: address,
		OrderNotes:      strings.TrimSpace(orderNotes),
		CartItems:       make([]domain.CheckoutLine, 0, len(items)),
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("item %d (product %d): quantity must be positive", i, item.ProductID),
			}
		}
		req.CartItems = append(req.CartItems, domain.CheckoutLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	uc.log.Infof("Use Case: Validated checkout with %d lines (total %s)", len(items), domain.CartTotal(items).StringFixed(2))

	order, err := uc.orders.Checkout(ctx, req)
	if err != nil {
		message := msgCheckoutFailed
		if apiErr, ok := clients.AsAPIError(err); ok && apiErr.StatusCode != 0 {
			switch {
			case apiErr.Detail != "":
				message = apiErr.Detail
			case apiErr.ErrorText != "":
				message = apiErr.ErrorText
			}
		}
		uc.log.Errorf("Use Case: Checkout failed, cart left untouched: %v", err)
		return nil, &domain.FailureError{Reason: domain.ErrCheckoutFailed, Message: message, Err: err}
	}

	uc.log.Infof("Use Case: Order %d created with status %s", order.ID, order.Status)
	if err := uc.cart.Clear(ctx); err != nil {
		uc.log.Warnf("Use Case: Order %d placed but the cart could not be cleared: %v", order.ID, err)
	}
	return order, nil
}
