package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

// CartRepository persists the anonymous cart as one JSON array.
type CartRepository struct {
	store KeyValueStore
	key   string
	log   *logrus.Logger
}

func NewCartRepository(store KeyValueStore, key string, logger *logrus.Logger) *CartRepository {
	return &CartRepository{store: store, key: key, log: logger}
}

// Load returns the saved items. A missing key yields an empty cart; a
// corrupt value is discarded and also yields an empty cart.
func (r *CartRepository) Load(ctx context.Context) ([]domain.LocalCartItem, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return []domain.LocalCartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []domain.LocalCartItem
	if err := json.Unmarshal(data, &items); err != nil {
		r.log.Warnf("CartRepository: Discarding unreadable cart under %s: %v", r.key, err)
		return []domain.LocalCartItem{}, nil
	}
	if items == nil {
		items = []domain.LocalCartItem{}
	}
	return items, nil
}

func (r *CartRepository) Save(ctx context.Context, items []domain.LocalCartItem) error {
	if items == nil {
		items = []domain.LocalCartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	return r.store.Set(ctx, r.key, data)
}

func (r *CartRepository) Clear(ctx context.Context) error {
	return r.Save(ctx, nil)
}
