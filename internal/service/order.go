package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tableside/internal/client"
	"tableside/internal/events"
	"tableside/internal/model"
	"tableside/internal/repository"
)

// OrderService drives the order lifecycle against the remote record.
type OrderService interface {
	// Checkout confirms the pending cart: the remote order is created on
	// first confirmation (Draft → Placed), then the full item list and
	// total are pushed.
	Checkout(ctx context.Context, tableID int64, userID string) (int64, error)
	// GetOrderDetail reads the order, lazily cancelling a reservation
	// whose end time has passed. Expiry is only ever detected on access;
	// there is no background sweep.
	GetOrderDetail(ctx context.Context, orderID int64) (*model.OrderRecord, error)
	// Cancel terminates the order for a table, resets the table to
	// available and removes the cached cart.
	Cancel(ctx context.Context, tableID int64) error
}

type orderServiceImpl struct {
	orderClient client.OrderServiceClient
	cartRepo    repository.CartRepository
	syncSvc     OrderSyncService
	publisher   events.StatusPublisher
	log         *zap.Logger
}

func NewOrderService(
	orderClient client.OrderServiceClient,
	cartRepo repository.CartRepository,
	syncSvc OrderSyncService,
	publisher events.StatusPublisher,
	log *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orderClient: orderClient,
		cartRepo:    cartRepo,
		syncSvc:     syncSvc,
		publisher:   publisher,
		log:         log,
	}
}

func (s *orderServiceImpl) Checkout(ctx context.Context, tableID int64, userID string) (int64, error) {
	cart, err := s.cartRepo.Load(ctx, tableID)
	if err != nil {
		return 0, err
	}
	hadOrder := cart != nil && cart.OrderID != nil

	orderID, err := s.syncSvc.CreateOrGetOrder(ctx, tableID, userID)
	if err != nil {
		return 0, err
	}

	// The cache row was updated by CreateOrGetOrder; reload for the
	// current item list.
	cart, err = s.cartRepo.Load(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if err := s.syncSvc.SyncItems(ctx, orderID, cart.Items); err != nil {
		return 0, err
	}
	if err := s.syncSvc.UpdateTotal(ctx, orderID, cart.TotalAmount); err != nil {
		return 0, err
	}

	if !hadOrder {
		s.publisher.OrderStatusChanged(ctx, orderID, tableID, model.StateDraft, model.StatePlaced)
	}
	return orderID, nil
}

func (s *orderServiceImpl) GetOrderDetail(ctx context.Context, orderID int64) (*model.OrderRecord, error) {
	order, err := s.orderClient.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StateReserved {
		return order, nil
	}

	table, err := s.orderClient.GetTable(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("read table for reservation %d: %w", orderID, err)
	}
	if table.EndTime == nil || !time.Now().After(*table.EndTime) {
		return order, nil
	}

	// The reservation has lapsed: cancel server-side before presenting.
	if !model.CanTransition(order.Status, model.StateCancelled) {
		return order, nil
	}
	cancelled := model.StateCancelled
	if err := s.orderClient.UpdateOrder(ctx, orderID, &client.OrderPatch{Status: &cancelled}); err != nil {
		return nil, fmt.Errorf("expire reservation %d: %w", orderID, err)
	}
	s.publisher.OrderStatusChanged(ctx, orderID, order.TableID, order.Status, model.StateCancelled)
	s.log.Info("reservation expired on read",
		zap.Int64("order_id", orderID),
		zap.Time("end_time", *table.EndTime))

	order.Status = model.StateCancelled
	return order, nil
}

func (s *orderServiceImpl) Cancel(ctx context.Context, tableID int64) error {
	cart, err := s.cartRepo.Load(ctx, tableID)
	if err != nil {
		return err
	}

	if cart != nil && cart.OrderID != nil {
		orderID := *cart.OrderID
		from := model.StatePlaced
		if order, err := s.orderClient.GetOrder(ctx, orderID); err == nil {
			from = order.Status
		}
		if from.Terminal() {
			s.log.Warn("cancel requested for terminal order",
				zap.Int64("order_id", orderID),
				zap.String("status", from.String()))
		} else {
			cancelled := model.StateCancelled
			err := s.orderClient.UpdateOrder(ctx, orderID, &client.OrderPatch{Status: &cancelled})
			if err != nil {
				// Local cleanup proceeds regardless; the remote record
				// stays stale until the next manual action. Known
				// limitation, last-write-wins.
				s.log.Warn("remote cancel failed, clearing local state anyway",
					zap.Int64("order_id", orderID),
					zap.Error(err))
			} else {
				s.publisher.OrderStatusChanged(ctx, orderID, tableID, from, model.StateCancelled)
			}
		}
	}

	available := model.TableAvailable
	if err := s.orderClient.UpdateTable(ctx, tableID, &client.TablePatch{Status: &available}); err != nil {
		s.log.Warn("reset table status failed",
			zap.Int64("table_id", tableID),
			zap.Error(err))
	}

	return s.cartRepo.Delete(ctx, tableID)
}
