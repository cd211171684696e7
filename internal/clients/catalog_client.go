package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type CatalogClient interface {
	ListProducts(ctx context.Context, q domain.ProductQuery) (domain.Page[domain.Product], error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type catalogHTTPClient struct {
	api *APIClient
	log *logrus.Logger
}

func NewCatalogClient(api *APIClient, logger *logrus.Logger) CatalogClient {
	return &catalogHTTPClient{api: api, log: logger}
}

func productQueryValues(q domain.ProductQuery) url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	set("category", q.Category)
	set("search", q.Search)
	set("price_min", q.PriceMin)
	set("price_max", q.PriceMax)
	set("ordering", q.Ordering)
	return values
}

func (c *catalogHTTPClient) ListProducts(ctx context.Context, q domain.ProductQuery) (domain.Page[domain.Product], error) {
	values := productQueryValues(q)
	c.log.Infof("CatalogClient: Listing products (%s)", values.Encode())
	products, count, err := getList[domain.Product](ctx, c.api, "/products/", values)
	if err != nil {
		return domain.NewPage[domain.Product](nil, 0, q.PageSize), err
	}
	return domain.NewPage(products, count, q.PageSize), nil
}

func (c *catalogHTTPClient) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var product domain.Product
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/products/%d/", productID), nil, nil, &product); err != nil {
		return nil, err
	}
	if product.ID != productID {
		c.log.Warnf("CatalogClient: Mismatched product ID in response. Requested %d, got %d", productID, product.ID)
	}
	return &product, nil
}

func (c *catalogHTTPClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, _, err := getList[domain.Category](ctx, c.api, "/products/categories/", nil)
	return categories, err
}
