package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tableside/internal/apperr"
	"tableside/internal/client"
	"tableside/internal/model"
	"tableside/internal/repository"
)

// OrderSyncService bridges the local cart cache and the remote order record.
// Item syncs always replace the server-side list wholesale, so repeating a
// sync with the same local list is idempotent. There is no automatic retry;
// a failed sync is retried by the next user-triggered mutation.
type OrderSyncService interface {
	// CreateOrGetOrder returns the cart's existing order id, creating the
	// remote order first if the cart has none yet.
	CreateOrGetOrder(ctx context.Context, tableID int64, userID string) (int64, error)
	SyncItems(ctx context.Context, orderID int64, items model.CartItems) error
	UpdateTotal(ctx context.Context, orderID int64, total int64) error
}

type orderSyncImpl struct {
	orderClient client.OrderServiceClient
	cartRepo    repository.CartRepository
	log         *zap.Logger
}

func NewOrderSyncService(
	orderClient client.OrderServiceClient,
	cartRepo repository.CartRepository,
	log *zap.Logger,
) OrderSyncService {
	return &orderSyncImpl{
		orderClient: orderClient,
		cartRepo:    cartRepo,
		log:         log,
	}
}

func (s *orderSyncImpl) CreateOrGetOrder(ctx context.Context, tableID int64, userID string) (int64, error) {
	cart, err := s.cartRepo.Load(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if cart == nil || cart.IsEmpty() {
		return 0, apperr.Validation("table %d has no pending cart", tableID)
	}
	if cart.OrderID != nil {
		return *cart.OrderID, nil
	}

	table, err := s.orderClient.GetTable(ctx, tableID)
	if err != nil {
		return 0, fmt.Errorf("read table %d: %w", tableID, err)
	}

	resp, err := s.orderClient.CreateOrder(ctx, &client.CreateOrderRequest{
		TableID:      tableID,
		UserID:       userID,
		Capacity:     table.Capacity,
		Name:         fmt.Sprintf("Table %d", table.Number),
		Date:         time.Now(),
		TotalPayment: cart.TotalAmount,
	})
	if err != nil {
		return 0, fmt.Errorf("create remote order: %w", err)
	}

	// Store the id and creation timestamp back into the cache so later
	// mutations know a remote record exists.
	cart.OrderID = &resp.ID
	cart.CreatedAt = resp.CreatedAt
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return 0, err
	}

	s.log.Info("remote order created",
		zap.Int64("table_id", tableID),
		zap.Int64("order_id", resp.ID))
	return resp.ID, nil
}

func (s *orderSyncImpl) SyncItems(ctx context.Context, orderID int64, items model.CartItems) error {
	refs := make([]client.ItemRef, len(items))
	for i, it := range items {
		if it.ProductID == 0 {
			return apperr.Validation("item %q has no product reference", it.Name)
		}
		if it.Quantity < 1 {
			return apperr.Validation("item %q has non-positive quantity %d", it.Name, it.Quantity)
		}
		refs[i] = client.ItemRef{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	if err := s.orderClient.SyncItems(ctx, orderID, refs); err != nil {
		return fmt.Errorf("sync items for order %d: %w", orderID, err)
	}
	return nil
}

func (s *orderSyncImpl) UpdateTotal(ctx context.Context, orderID int64, total int64) error {
	patch := &client.OrderPatch{TotalPayment: &total}
	if err := s.orderClient.UpdateOrder(ctx, orderID, patch); err != nil {
		return fmt.Errorf("update total for order %d: %w", orderID, err)
	}
	return nil
}
