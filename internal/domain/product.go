package domain

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    int64           `json:"category,omitempty"`
	Farmer      int64           `json:"farmer,omitempty"`
	IsAvailable bool            `json:"is_available"`
	HarvestDate string          `json:"harvest_date,omitempty"`
	Stock       int             `json:"stock,omitempty"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// ProductQuery holds the list filters accepted by GET /products/.
// Zero values are omitted from the query string.
type ProductQuery struct {
	Page     int
	PageSize int
	Category string
	Search   string
	PriceMin string
	PriceMax string
	Ordering string
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Count      int
	Results    []T
	TotalPages int
}

// NewPage computes TotalPages from count and pageSize.
func NewPage[T any](results []T, count, pageSize int) Page[T] {
	if results == nil {
		results = []T{}
	}
	p := Page[T]{Count: count, Results: results}
	if pageSize > 0 {
		p.TotalPages = (count + pageSize - 1) / pageSize
	}
	return p
}
