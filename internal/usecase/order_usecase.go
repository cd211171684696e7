package usecase

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/clients"
	"storefront/internal/domain"
	"storefront/internal/state"

	"github.com/sirupsen/logrus"
)

// StatusChange is an order whose status differs from the previous listing.
type StatusChange struct {
	OrderID int64
	From    domain.OrderStatus
	To      domain.OrderStatus
	// Forward is false when the server reported a move the status graph does not allow.
	Forward bool
}

type OrderUseCase struct {
	orders clients.OrderClient
	state  *state.State

	mu   sync.Mutex
	seen map[int64]domain.OrderStatus

	log *logrus.Logger
}

func NewOrderUseCase(orders clients.OrderClient, st *state.State, logger *logrus.Logger) *OrderUseCase {
	uc := &OrderUseCase{
		orders: orders,
		state:  st,
		seen:   make(map[int64]domain.OrderStatus),
		log:    logger,
	}
	st.Subscribe(func(_ context.Context, prev, next state.Snapshot) {
		if prev.IsAuthenticated() && !next.IsAuthenticated() {
			uc.mu.Lock()
			uc.seen = make(map[int64]domain.OrderStatus)
			uc.mu.Unlock()
		}
	})
	return uc
}

// ListOrders is a read: when anonymous or on failure it returns no orders.
func (uc *OrderUseCase) ListOrders(ctx context.Context) []domain.Order {
	if !uc.state.IsAuthenticated() {
		return []domain.Order{}
	}
	orders, err := uc.orders.ListOrders(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to list orders: %v", err)
		return []domain.Order{}
	}
	uc.log.Infof("Use Case: Retrieved %d orders", len(orders))
	return orders
}

// Refresh re-lists the orders, as done when the storefront regains focus,
// and reports which statuses moved since the last call.
func (uc *OrderUseCase) Refresh(ctx context.Context) ([]domain.Order, []StatusChange) {
	orders := uc.ListOrders(ctx)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	var changes []StatusChange
	for _, order := range orders {
		prev, known := uc.seen[order.ID]
		uc.seen[order.ID] = order.Status
		if !known || prev == order.Status {
			continue
		}
		change := StatusChange{
			OrderID: order.ID,
			From:    prev,
			To:      order.Status,
			Forward: domain.CanTransition(prev, order.Status),
		}
		if change.Forward {
			uc.log.Infof("Use Case: Order %d moved %s -> %s", order.ID, prev, order.Status)
		} else {
			uc.log.Warnf("Use Case: Order %d reported unexpected transition %s -> %s", order.ID, prev, order.Status)
		}
		changes = append(changes, change)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].OrderID < changes[j].OrderID })
	return orders, changes
}
