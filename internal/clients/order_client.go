package clients

import (
	"context"
	"net/http"

	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type OrderClient interface {
	Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

type orderHTTPClient struct {
	api *APIClient
	log *logrus.Logger
}

func NewOrderClient(api *APIClient, logger *logrus.Logger) OrderClient {
	return &orderHTTPClient{api: api, log: logger}
}

func (c *orderHTTPClient) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	c.log.Infof("OrderClient: Submitting checkout with %d lines", len(req.CartItems))
	var order domain.Order
	if err := c.api.Do(ctx, http.MethodPost, "/checkout/", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *orderHTTPClient) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, _, err := getList[domain.Order](ctx, c.api, "/orders/", nil)
	return orders, err
}
