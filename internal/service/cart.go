package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tableside/internal/apperr"
	"tableside/internal/model"
	"tableside/internal/repository"
)

// CartService owns every mutation of the per-table pending cart. Mutations
// are written to the durable cache synchronously before any network call;
// when the cart already references a remote order, a background full-list
// sync follows. Sync failures never revert the local mutation; the cache
// stays authoritative until the next successful sync.
type CartService interface {
	AddOrIncrement(ctx context.Context, tableID int64, item model.CartItem, delta int) (*model.PendingCart, error)
	Remove(ctx context.Context, tableID, productID int64) (*model.PendingCart, error)
	Clear(ctx context.Context, tableID int64) error
	Load(ctx context.Context, tableID int64) (*model.PendingCart, error)
}

type cartServiceImpl struct {
	cartRepo repository.CartRepository
	syncSvc  OrderSyncService
	log      *zap.Logger

	// syncTimeout bounds the background sync that follows a mutation.
	syncTimeout time.Duration
}

func NewCartService(cartRepo repository.CartRepository, syncSvc OrderSyncService, log *zap.Logger) CartService {
	return &cartServiceImpl{
		cartRepo:    cartRepo,
		syncSvc:     syncSvc,
		log:         log,
		syncTimeout: 30 * time.Second,
	}
}

func (s *cartServiceImpl) AddOrIncrement(ctx context.Context, tableID int64, item model.CartItem, delta int) (*model.PendingCart, error) {
	if item.ProductID == 0 {
		return nil, apperr.Validation("item has no product reference")
	}
	if delta == 0 {
		return nil, apperr.Validation("delta must be non-zero")
	}

	cart, err := s.cartRepo.Load(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		if delta < 0 {
			return nil, apperr.Validation("table %d has no pending cart", tableID)
		}
		// first item selection creates the cart
		cart = &model.PendingCart{
			TableID:   tableID,
			CreatedAt: time.Now(),
		}
	}

	idx := cart.FindItem(item.ProductID)
	switch {
	case idx >= 0:
		cart.Items[idx].Quantity += delta
		// a quantity at or below zero removes the line; it is never stored
		if cart.Items[idx].Quantity <= 0 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		}
	case delta > 0:
		item.Quantity = delta
		cart.Items = append(cart.Items, item)
	default:
		return nil, apperr.Validation("product %d not in cart", item.ProductID)
	}
	cart.Recompute()

	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.syncIfPlaced(cart)
	return cart, nil
}

func (s *cartServiceImpl) Remove(ctx context.Context, tableID, productID int64) (*model.PendingCart, error) {
	cart, err := s.cartRepo.Load(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.Validation("table %d has no pending cart", tableID)
	}
	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, apperr.Validation("product %d not in cart", productID)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	cart.Recompute()

	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}

	// Emptying the cart does not cancel a placed order; only an explicit
	// cancel or payment completion ends the lifecycle.
	s.syncIfPlaced(cart)
	return cart, nil
}

func (s *cartServiceImpl) Clear(ctx context.Context, tableID int64) error {
	return s.cartRepo.Delete(ctx, tableID)
}

func (s *cartServiceImpl) Load(ctx context.Context, tableID int64) (*model.PendingCart, error) {
	return s.cartRepo.Load(ctx, tableID)
}

// syncIfPlaced pushes the complete current item list and the recomputed
// total to the remote order, in the background, when the cart already holds
// an order id. The caller's mutation has already been persisted; a failure
// here is logged and left for the next mutation or an explicit retry.
func (s *cartServiceImpl) syncIfPlaced(cart *model.PendingCart) {
	if cart.OrderID == nil {
		return
	}
	orderID := *cart.OrderID
	items := make(model.CartItems, len(cart.Items))
	copy(items, cart.Items)
	total := cart.TotalAmount

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()

		if err := s.syncSvc.SyncItems(ctx, orderID, items); err != nil {
			s.log.Warn("background item sync failed",
				zap.Int64("order_id", orderID),
				zap.Error(err))
			return
		}
		if err := s.syncSvc.UpdateTotal(ctx, orderID, total); err != nil {
			s.log.Warn("background total update failed",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}()
}
