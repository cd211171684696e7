package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/state"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LoginCartPolicy decides what happens to the anonymous cart on login.
type LoginCartPolicy string

const (
	// LoginCartMerge adds every local line to the server cart.
	LoginCartMerge LoginCartPolicy = "merge"
	// LoginCartDiscard drops the local cart and shows the server cart.
	LoginCartDiscard LoginCartPolicy = "discard"
)

func ParseLoginCartPolicy(s string) (LoginCartPolicy, error) {
	switch p := LoginCartPolicy(s); p {
	case LoginCartMerge, LoginCartDiscard:
		return p, nil
	default:
		return "", fmt.Errorf("unknown cart login policy %q", s)
	}
}

// LocalCartStore persists the anonymous cart.
type LocalCartStore interface {
	Load(ctx context.Context) ([]domain.LocalCartItem, error)
	Save(ctx context.Context, items []domain.LocalCartItem) error
	Clear(ctx context.Context) error
}

// CartUseCase keeps the cart in local storage while anonymous and on the
// server while authenticated. Network calls are made without holding mu so
// that a session change triggered by a response can switch the mode.
type CartUseCase struct {
	mu     sync.Mutex
	mode   domain.CartMode
	local  []domain.LocalCartItem
	loaded bool
	remote []domain.CartItem
	// gen changes on every mode switch; responses from an older gen are dropped.
	gen uint64

	server clients.CartClient
	store  LocalCartStore
	policy LoginCartPolicy
	log    *logrus.Logger
}

func NewCartUseCase(st *state.State, server clients.CartClient, store LocalCartStore, policy LoginCartPolicy, logger *logrus.Logger) *CartUseCase {
	uc := &CartUseCase{
		mode:   domain.CartModeLocal,
		local:  []domain.LocalCartItem{},
		server: server,
		store:  store,
		policy: policy,
		log:    logger,
	}
	if st.IsAuthenticated() {
		uc.mode = domain.CartModeServer
	}
	st.Subscribe(uc.onSessionChange)
	return uc
}

func (uc *CartUseCase) onSessionChange(ctx context.Context, prev, next state.Snapshot) {
	if prev.IsAuthenticated() == next.IsAuthenticated() {
		return
	}
	if next.IsAuthenticated() {
		uc.switchToServer(ctx)
	} else {
		uc.switchToLocal(ctx)
	}
}

func (uc *CartUseCase) switchToServer(ctx context.Context) {
	uc.mu.Lock()
	uc.ensureLocalLoaded(ctx)
	pending := uc.local
	uc.mode = domain.CartModeServer
	uc.local = []domain.LocalCartItem{}
	uc.loaded = false
	uc.remote = nil
	uc.gen++
	uc.mu.Unlock()

	uc.log.Infof("Use Case: Cart switched to server mode (%d local lines, policy %s)", len(pending), uc.policy)

	var unmerged []domain.LocalCartItem
	if len(pending) > 0 {
		switch uc.policy {
		case LoginCartMerge:
			unmerged = uc.mergeIntoServer(ctx, pending)
		default:
			uc.log.Warnf("Use Case: Discarding %d local cart lines on login", len(pending))
		}
	}

	// Lines the server refused stay in local storage; they come back as the
	// anonymous cart after logout and are offered again on the next login.
	if len(unmerged) > 0 {
		uc.log.Warnf("Use Case: Keeping %d cart lines locally that could not be merged", len(unmerged))
		if err := uc.store.Save(ctx, unmerged); err != nil {
			uc.log.Errorf("Use Case: Failed to keep unmerged cart lines: %v", err)
		}
	} else if err := uc.store.Clear(ctx); err != nil {
		uc.log.Errorf("Use Case: Failed to clear local cart after login: %v", err)
	}
	uc.FetchCart(ctx)
}

// mergeIntoServer adds pending to the server cart and returns the lines
// that could not be merged.
func (uc *CartUseCase) mergeIntoServer(ctx context.Context, pending []domain.LocalCartItem) []domain.LocalCartItem {
	existing, err := uc.server.ListItems(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Could not read server cart before merge: %v", err)
		return pending
	}
	byProduct := make(map[int64]domain.CartItem, len(existing))
	for _, item := range existing {
		byProduct[item.ProductID] = item
	}

	var unmerged []domain.LocalCartItem
	for _, line := range pending {
		if current, ok := byProduct[line.Product.ID]; ok {
			err = uc.server.UpdateItem(ctx, current.ID, current.Quantity+line.Quantity)
		} else {
			err = uc.server.AddItem(ctx, line.Product.ID, line.Quantity)
		}
		if err != nil {
			uc.log.Warnf("Use Case: Could not merge product %d (quantity %d) into server cart: %v", line.Product.ID, line.Quantity, err)
			unmerged = append(unmerged, line)
			continue
		}
		uc.log.Infof("Use Case: Merged product %d (quantity %d) into server cart", line.Product.ID, line.Quantity)
	}
	return unmerged
}

func (uc *CartUseCase) switchToLocal(ctx context.Context) {
	saved, err := uc.store.Load(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to load local cart: %v", err)
		saved = nil
	}

	uc.mu.Lock()
	uc.mode = domain.CartModeLocal
	uc.local = domain.ReduceCart(nil, domain.ReplaceCart{Items: saved})
	uc.loaded = true
	uc.remote = nil
	uc.gen++
	uc.mu.Unlock()
	uc.log.Info("Use Case: Cart switched to local mode")
}

// FetchCart reloads the cart from its owner. It never fails: on error the
// result is an empty cart.
func (uc *CartUseCase) FetchCart(ctx context.Context) []domain.CartItem {
	uc.mu.Lock()
	mode, gen := uc.mode, uc.gen
	uc.mu.Unlock()

	if mode == domain.CartModeLocal {
		saved, err := uc.store.Load(ctx)
		if err != nil {
			uc.log.Warnf("Use Case: Failed to load local cart: %v", err)
			saved = nil
		}
		uc.mu.Lock()
		defer uc.mu.Unlock()
		if uc.gen != gen {
			return []domain.CartItem{}
		}
		uc.local = domain.ReduceCart(nil, domain.ReplaceCart{Items: saved})
		uc.loaded = true
		return localView(uc.local)
	}

	items, err := uc.server.ListItems(ctx)
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if err != nil {
		uc.log.Warnf("Use Case: Failed to fetch server cart, showing empty cart: %v", err)
		if uc.gen == gen {
			uc.remote = []domain.CartItem{}
		}
		return []domain.CartItem{}
	}
	if uc.gen != gen {
		uc.log.Debug("Use Case: Dropping cart response from a previous session")
		return []domain.CartItem{}
	}
	uc.remote = items
	return cloneItems(items)
}

func (uc *CartUseCase) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	if uc.Mode() == domain.CartModeLocal {
		uc.log.Infof("Use Case: Adding product %d (quantity %d) to local cart", product.ID, quantity)
		return uc.dispatch(ctx, domain.AddToCart{Product: product, Quantity: quantity})
	}

	// The server allows one line per product, so the current cart decides
	// between a new line and a quantity update.
	existing, err := uc.server.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cart before adding product %d: %w", product.ID, err)
	}
	if current, ok := findProduct(existing, product.ID); ok {
		err = uc.server.UpdateItem(ctx, current.ID, current.Quantity+quantity)
	} else {
		err = uc.server.AddItem(ctx, product.ID, quantity)
	}
	if err != nil {
		return fmt.Errorf("failed to add product %d to cart: %w", product.ID, err)
	}
	uc.FetchCart(ctx)
	return nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
// Local lines are addressed by product ID, server lines by cart item ID.
func (uc *CartUseCase) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity <= 0 {
		return uc.RemoveItem(ctx, itemID)
	}

	if uc.Mode() == domain.CartModeLocal {
		if !uc.hasLocal(ctx, itemID) {
			return domain.ErrItemNotFound
		}
		return uc.dispatch(ctx, domain.SetQuantity{ProductID: itemID, Quantity: quantity})
	}

	if err := uc.server.UpdateItem(ctx, itemID, quantity); err != nil {
		return fmt.Errorf("failed to update cart item %d: %w", itemID, err)
	}
	uc.FetchCart(ctx)
	return nil
}

func (uc *CartUseCase) RemoveItem(ctx context.Context, itemID int64) error {
	if uc.Mode() == domain.CartModeLocal {
		return uc.dispatch(ctx, domain.RemoveFromCart{ProductID: itemID})
	}

	if err := uc.server.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("failed to remove cart item %d: %w", itemID, err)
	}
	uc.FetchCart(ctx)
	return nil
}

// Clear empties the cart; used after a successful checkout.
func (uc *CartUseCase) Clear(ctx context.Context) error {
	if uc.Mode() == domain.CartModeLocal {
		return uc.dispatch(ctx, domain.ClearCart{})
	}

	items, err := uc.server.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cart before clearing: %w", err)
	}
	var errs []error
	for _, item := range items {
		if err := uc.server.DeleteItem(ctx, item.ID); err != nil {
			errs = append(errs, fmt.Errorf("cart item %d: %w", item.ID, err))
		}
	}
	uc.FetchCart(ctx)
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear cart: %w", errors.Join(errs...))
	}
	return nil
}

// dispatch applies cmd to the local cart and persists the result.
func (uc *CartUseCase) dispatch(ctx context.Context, cmd domain.CartCommand) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.ensureLocalLoaded(ctx)
	next := domain.ReduceCart(uc.local, cmd)
	if err := uc.store.Save(ctx, next); err != nil {
		uc.log.Errorf("Use Case: Failed to persist local cart: %v", err)
		return fmt.Errorf("failed to save cart: %w", err)
	}
	uc.local = next
	return nil
}

func (uc *CartUseCase) Mode() domain.CartMode {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.mode
}

// Items returns the currently loaded lines without refetching.
func (uc *CartUseCase) Items() []domain.CartItem {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.mode == domain.CartModeLocal {
		return localView(uc.local)
	}
	return cloneItems(uc.remote)
}

// Total sums the price captured on each loaded line.
func (uc *CartUseCase) Total() decimal.Decimal {
	return domain.CartTotal(uc.Items())
}

func (uc *CartUseCase) Count() int {
	return domain.CartCount(uc.Items())
}

// ensureLocalLoaded reads the saved cart once so that the first mutation
// does not overwrite it. Callers hold mu.
func (uc *CartUseCase) ensureLocalLoaded(ctx context.Context) {
	if uc.loaded || uc.mode != domain.CartModeLocal {
		return
	}
	saved, err := uc.store.Load(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to load local cart: %v", err)
		return
	}
	uc.local = domain.ReduceCart(nil, domain.ReplaceCart{Items: saved})
	uc.loaded = true
}

func (uc *CartUseCase) hasLocal(ctx context.Context, productID int64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.ensureLocalLoaded(ctx)
	for _, line := range uc.local {
		if line.Product.ID == productID {
			return true
		}
	}
	return false
}

func findProduct(items []domain.CartItem, productID int64) (domain.CartItem, bool) {
	for _, item := range items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return domain.CartItem{}, false
}

func localView(lines []domain.LocalCartItem) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, line.CartItem())
	}
	return items
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
