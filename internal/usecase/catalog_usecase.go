package usecase

import (
	"context"
	"fmt"

	"storefront/internal/clients"
	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

const DefaultPageSize = 12

type CatalogUseCase struct {
	catalog  clients.CatalogClient
	pageSize int
	log      *logrus.Logger
}

func NewCatalogUseCase(catalog clients.CatalogClient, pageSize int, logger *logrus.Logger) *CatalogUseCase {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CatalogUseCase{catalog: catalog, pageSize: pageSize, log: logger}
}

func (uc *CatalogUseCase) ListProducts(ctx context.Context, q domain.ProductQuery) (domain.Page[domain.Product], error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = uc.pageSize
	}
	page, err := uc.catalog.ListProducts(ctx, q)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to list products (page %d): %v", q.Page, err)
		return page, fmt.Errorf("could not list products: %w", err)
	}
	uc.log.Infof("Use Case: Listed %d of %d products (page %d/%d)", len(page.Results), page.Count, q.Page, page.TotalPages)
	return page, nil
}

func (uc *CatalogUseCase) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("invalid product ID %d", productID)
	}
	product, err := uc.catalog.GetProduct(ctx, productID)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to get product %d: %v", productID, err)
		return nil, fmt.Errorf("could not get product %d: %w", productID, err)
	}
	return product, nil
}

// ListCategories is a read for filter menus; failures yield no categories.
func (uc *CatalogUseCase) ListCategories(ctx context.Context) []domain.Category {
	categories, err := uc.catalog.ListCategories(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to list categories: %v", err)
		return []domain.Category{}
	}
	return categories
}
