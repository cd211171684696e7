package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

type TokenRepository struct {
	store KeyValueStore
	key   string
	log   *logrus.Logger
}

func NewTokenRepository(store KeyValueStore, key string, logger *logrus.Logger) *TokenRepository {
	return &TokenRepository{store: store, key: key, log: logger}
}

// Load returns the persisted token or "" when there is none.
func (r *TokenRepository) Load(ctx context.Context) (string, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *TokenRepository) Save(ctx context.Context, token string) error {
	return r.store.Set(ctx, r.key, []byte(token))
}

func (r *TokenRepository) Delete(ctx context.Context) error {
	return r.store.Delete(ctx, r.key)
}
