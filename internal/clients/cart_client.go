package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CartClient interface {
	ListItems(ctx context.Context) ([]domain.CartItem, error)
	AddItem(ctx context.Context, productID int64, quantity int) error
	UpdateItem(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error
}

// productRef is either a bare product id or an embedded product object.
type productRef struct {
	ID      int64
	Product *domain.Product
}

func (r *productRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var p domain.Product
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		r.ID, r.Product = p.ID, &p
		return nil
	}
	return json.Unmarshal(data, &r.ID)
}

type serverCartItem struct {
	ID           int64               `json:"id"`
	Product      productRef          `json:"product"`
	ProductName  string              `json:"product_name"`
	ProductPrice decimal.NullDecimal `json:"product_price"`
	Quantity     int                 `json:"quantity"`
}

func (s serverCartItem) toDomain() domain.CartItem {
	item := domain.CartItem{
		ID:          s.ID,
		ProductID:   s.Product.ID,
		ProductName: s.ProductName,
		Quantity:    s.Quantity,
		Product:     s.Product.Product,
	}
	switch {
	case s.ProductPrice.Valid:
		item.UnitPrice = s.ProductPrice.Decimal
	case s.Product.Product != nil:
		item.UnitPrice = s.Product.Product.Price
	}
	if item.ProductName == "" && s.Product.Product != nil {
		item.ProductName = s.Product.Product.Name
	}
	return item
}

type cartItemPayload struct {
	Product  int64 `json:"product,omitempty"`
	Quantity int   `json:"quantity"`
}

type cartHTTPClient struct {
	api *APIClient
	log *logrus.Logger
}

func NewCartClient(api *APIClient, logger *logrus.Logger) CartClient {
	return &cartHTTPClient{api: api, log: logger}
}

func (c *cartHTTPClient) ListItems(ctx context.Context) ([]domain.CartItem, error) {
	raw, _, err := getList[serverCartItem](ctx, c.api, "/cart/items/", nil)
	if err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, r.toDomain())
	}
	c.log.Debugf("CartClient: Server cart holds %d items", len(items))
	return items, nil
}

func (c *cartHTTPClient) AddItem(ctx context.Context, productID int64, quantity int) error {
	c.log.Infof("CartClient: Adding product %d (quantity %d) to server cart", productID, quantity)
	return c.api.Do(ctx, http.MethodPost, "/cart/items/", nil, cartItemPayload{Product: productID, Quantity: quantity}, nil)
}

func (c *cartHTTPClient) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	c.log.Infof("CartClient: Setting cart item %d quantity to %d", itemID, quantity)
	return c.api.Do(ctx, http.MethodPatch, fmt.Sprintf("/cart/items/%d/", itemID), nil, cartItemPayload{Quantity: quantity}, nil)
}

func (c *cartHTTPClient) DeleteItem(ctx context.Context, itemID int64) error {
	c.log.Infof("CartClient: Deleting cart item %d", itemID)
	return c.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/cart/items/%d/", itemID), nil, nil, nil)
}
