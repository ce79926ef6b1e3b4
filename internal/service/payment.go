package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tableside/internal/apperr"
	"tableside/internal/client"
	"tableside/internal/config"
	"tableside/internal/events"
	"tableside/internal/model"
	"tableside/internal/repository"
)

// PaymentCoordinator drives the terminal lifecycle transition to paid.
// Instant methods (cash, card, direct transfer) complete in one call;
// asynchronous methods (bank-transfer QR) open a PaymentSession whose
// confirmation is observed by polling the remote order status. At most one
// live session exists per table.
type PaymentCoordinator interface {
	ListMethods(ctx context.Context) ([]model.PaymentMethod, error)
	SelectMethod(ctx context.Context, tableID, methodID int64) (*model.PaymentMethod, error)
	PayInstant(ctx context.Context, tableID int64, userID string, methodID int64) (int64, error)
	Begin(ctx context.Context, tableID int64, userID string, methodID int64) (*PaymentSessionView, error)
	Session(tableID int64) (*PaymentSessionView, bool)
	CancelSession(tableID int64)
	Complete(ctx context.Context, tableID int64) error
	Shutdown()
}

// PaymentSessionView is a point-in-time snapshot of a session, safe to hand
// to callers.
type PaymentSessionView struct {
	SessionID  string `json:"session_id"`
	TableID    int64  `json:"table_id"`
	OrderID    int64  `json:"order_id"`
	Amount     int64  `json:"amount"`
	QRPayload  string `json:"qr_payload"`
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
	Confirmed  bool   `json:"confirmed"`
	Completed  bool   `json:"completed"`
	Expired    bool   `json:"expired"`
}

type paymentSession struct {
	id         string
	tableID    int64
	orderID    int64
	methodID   int64
	amount     int64
	qrPayload  string
	paymentURL string
	reference  string

	// confirmed is monotonic: it flips false → true when the remote
	// status reads paid and never reverts within the session.
	confirmed bool
	completed bool
	expired   bool

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *paymentSession) view() *PaymentSessionView {
	return &PaymentSessionView{
		SessionID:  s.id,
		TableID:    s.tableID,
		OrderID:    s.orderID,
		Amount:     s.amount,
		QRPayload:  s.qrPayload,
		PaymentURL: s.paymentURL,
		Reference:  s.reference,
		Confirmed:  s.confirmed,
		Completed:  s.completed,
		Expired:    s.expired,
	}
}

type paymentCoordinatorImpl struct {
	orderClient client.OrderServiceClient
	cartRepo    repository.CartRepository
	syncSvc     OrderSyncService
	publisher   events.StatusPublisher
	log         *zap.Logger

	pollInterval time.Duration
	sessionTTL   time.Duration
	bankAccount  string
	bankCode     string

	mu       sync.Mutex
	sessions map[int64]*paymentSession // keyed by table id
}

func NewPaymentCoordinator(
	orderClient client.OrderServiceClient,
	cartRepo repository.CartRepository,
	syncSvc OrderSyncService,
	publisher events.StatusPublisher,
	cfg config.Payment,
	log *zap.Logger,
) PaymentCoordinator {
	return &paymentCoordinatorImpl{
		orderClient:  orderClient,
		cartRepo:     cartRepo,
		syncSvc:      syncSvc,
		publisher:    publisher,
		log:          log,
		pollInterval: cfg.PollInterval,
		sessionTTL:   cfg.SessionTTL,
		bankAccount:  cfg.QRBankAccount,
		bankCode:     cfg.QRBankCode,
		sessions:     make(map[int64]*paymentSession),
	}
}

func (c *paymentCoordinatorImpl) ListMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	methods, err := c.orderClient.ListPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]model.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active, nil
}

func (c *paymentCoordinatorImpl) findActiveMethod(ctx context.Context, methodID int64) (*model.PaymentMethod, error) {
	methods, err := c.ListMethods(ctx)
	if err != nil {
		return nil, err
	}
	for i := range methods {
		if methods[i].ID == methodID {
			return &methods[i], nil
		}
	}
	return nil, apperr.Validation("payment method %d is not active", methodID)
}

// SelectMethod records the chosen method on the order (when one exists) and
// tears down any session opened for a previously chosen method.
func (c *paymentCoordinatorImpl) SelectMethod(ctx context.Context, tableID, methodID int64) (*model.PaymentMethod, error) {
	method, err := c.findActiveMethod(ctx, methodID)
	if err != nil {
		return nil, err
	}

	c.CancelSession(tableID)

	cart, err := c.cartRepo.Load(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if cart != nil && cart.OrderID != nil {
		patch := &client.OrderPatch{PaymentMethodID: &method.ID}
		if err := c.orderClient.UpdateOrder(ctx, *cart.OrderID, patch); err != nil {
			return nil, fmt.Errorf("record payment method on order %d: %w", *cart.OrderID, err)
		}
	}
	return method, nil
}

func (c *paymentCoordinatorImpl) PayInstant(ctx context.Context, tableID int64, userID string, methodID int64) (int64, error) {
	method, err := c.findActiveMethod(ctx, methodID)
	if err != nil {
		return 0, err
	}
	if method.IsAsynchronous {
		return 0, apperr.Validation("method %q requires an asynchronous payment session", method.Label)
	}

	orderID, err := c.syncSvc.CreateOrGetOrder(ctx, tableID, userID)
	if err != nil {
		return 0, err
	}
	cart, err := c.cartRepo.Load(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if cart == nil {
		// cleared between order resolution and the re-read
		return 0, apperr.Validation("table %d has no pending cart", tableID)
	}

	if err := c.syncSvc.SyncItems(ctx, orderID, cart.Items); err != nil {
		return 0, err
	}
	if err := c.syncSvc.UpdateTotal(ctx, orderID, cart.TotalAmount); err != nil {
		return 0, err
	}

	paid := model.StateInService
	deposit := "paid"
	patch := &client.OrderPatch{
		Status:          &paid,
		PaymentMethodID: &method.ID,
		DepositStatus:   &deposit,
	}
	if err := c.orderClient.UpdateOrder(ctx, orderID, patch); err != nil {
		return 0, fmt.Errorf("finalize instant payment for order %d: %w", orderID, err)
	}
	c.publisher.OrderStatusChanged(ctx, orderID, tableID, model.StatePlaced, model.StateInService)

	c.CancelSession(tableID)
	if err := c.cartRepo.Delete(ctx, tableID); err != nil {
		return 0, err
	}
	c.publisher.OrderStatusChanged(ctx, orderID, tableID, model.StateInService, model.StateCompleted)

	c.log.Info("instant payment completed",
		zap.Int64("table_id", tableID),
		zap.Int64("order_id", orderID),
		zap.String("method", method.Label))
	return orderID, nil
}

// Begin opens an asynchronous payment session for the table, implicitly
// cancelling any prior session for the same table, and starts the
// confirmation poll.
func (c *paymentCoordinatorImpl) Begin(ctx context.Context, tableID int64, userID string, methodID int64) (*PaymentSessionView, error) {
	method, err := c.findActiveMethod(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if !method.IsAsynchronous {
		return nil, apperr.Validation("method %q completes instantly; no session needed", method.Label)
	}

	orderID, err := c.syncSvc.CreateOrGetOrder(ctx, tableID, userID)
	if err != nil {
		return nil, err
	}
	cart, err := c.cartRepo.Load(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.Validation("table %d has no pending cart", tableID)
	}
	table, err := c.orderClient.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	methodPatch := &client.OrderPatch{PaymentMethodID: &method.ID}
	if err := c.orderClient.UpdateOrder(ctx, orderID, methodPatch); err != nil {
		return nil, fmt.Errorf("record payment method on order %d: %w", orderID, err)
	}

	reference := fmt.Sprintf("TABLE %d ORDER %d", table.Number, orderID)
	session := &paymentSession{
		id:         uuid.NewString(),
		tableID:    tableID,
		orderID:    orderID,
		methodID:   method.ID,
		amount:     cart.TotalAmount,
		reference:  reference,
		qrPayload:  c.buildQRPayload(cart.TotalAmount, reference),
		paymentURL: c.buildPaymentURL(cart.TotalAmount, reference),
		done:       make(chan struct{}),
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	session.cancel = cancel

	c.mu.Lock()
	if prev, ok := c.sessions[tableID]; ok {
		prev.cancel()
	}
	c.sessions[tableID] = session
	c.mu.Unlock()

	go c.poll(pollCtx, session)

	c.log.Info("payment session opened",
		zap.Int64("table_id", tableID),
		zap.Int64("order_id", orderID),
		zap.String("session_id", session.id))

	c.mu.Lock()
	defer c.mu.Unlock()
	return session.view(), nil
}

// buildQRPayload encodes the amount and reference deterministically; the
// same cart always yields the same payload.
func (c *paymentCoordinatorImpl) buildQRPayload(amount int64, reference string) string {
	return fmt.Sprintf("bank://%s/%s?amount=%d&ref=%s", c.bankCode, c.bankAccount, amount, url.QueryEscape(reference))
}

// buildPaymentURL is the rendered QR image for clients that cannot draw the
// payload themselves.
func (c *paymentCoordinatorImpl) buildPaymentURL(amount int64, reference string) string {
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-qr_only.png?amount=%d&addInfo=%s",
		c.bankCode, c.bankAccount, amount, url.QueryEscape(reference))
}

// poll reads the remote order status at a fixed interval until it observes
// paid, the session is cancelled, or the TTL lapses. Transport errors are
// logged and swallowed; the loop keeps going.
func (c *paymentCoordinatorImpl) poll(ctx context.Context, s *paymentSession) {
	defer close(s.done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.sessionTTL)
	defer deadline.Stop()

	// from tracks the last status observed before the paid flip, so the
	// confirmation event carries the real prior state (a reservation pays
	// out of reserved, not placed).
	from := model.StatePlaced
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			c.mu.Lock()
			s.expired = true
			c.mu.Unlock()
			c.log.Warn("payment session expired without confirmation",
				zap.Int64("table_id", s.tableID),
				zap.Int64("order_id", s.orderID))
			return
		case <-ticker.C:
			order, err := c.orderClient.GetOrder(ctx, s.orderID)
			if err != nil {
				c.log.Debug("payment poll read failed",
					zap.Int64("order_id", s.orderID),
					zap.Error(err))
				continue
			}
			if order.Status != model.StateInService {
				from = order.Status
				continue
			}
			c.mu.Lock()
			s.confirmed = true
			c.mu.Unlock()
			c.publisher.OrderStatusChanged(ctx, s.orderID, s.tableID, from, model.StateInService)
			c.log.Info("payment confirmed",
				zap.Int64("table_id", s.tableID),
				zap.Int64("order_id", s.orderID))
			return
		}
	}
}

func (c *paymentCoordinatorImpl) Session(tableID int64) (*PaymentSessionView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[tableID]
	if !ok {
		return nil, false
	}
	return s.view(), true
}

// CancelSession stops the poll and discards the session. Safe to call when
// no session exists; invoked on method switch, table switch and teardown.
func (c *paymentCoordinatorImpl) CancelSession(tableID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[tableID]; ok {
		s.cancel()
		delete(c.sessions, tableID)
	}
}

// Complete finalizes a confirmed session: final item sync, cart cleared,
// order finalized. The completed flag makes a repeated call from a stale
// trigger a no-op.
func (c *paymentCoordinatorImpl) Complete(ctx context.Context, tableID int64) error {
	c.mu.Lock()
	s, ok := c.sessions[tableID]
	if !ok {
		c.mu.Unlock()
		return apperr.Validation("table %d has no payment session", tableID)
	}
	if s.completed {
		c.mu.Unlock()
		return nil
	}
	if !s.confirmed {
		c.mu.Unlock()
		return apperr.Validation("payment for table %d is not confirmed yet", tableID)
	}
	s.completed = true
	orderID := s.orderID
	c.mu.Unlock()

	cart, err := c.cartRepo.Load(ctx, tableID)
	if err != nil {
		return err
	}
	if cart != nil {
		if err := c.syncSvc.SyncItems(ctx, orderID, cart.Items); err != nil {
			return err
		}
		if err := c.syncSvc.UpdateTotal(ctx, orderID, cart.TotalAmount); err != nil {
			return err
		}
	}

	deposit := "paid"
	if err := c.orderClient.UpdateOrder(ctx, orderID, &client.OrderPatch{DepositStatus: &deposit}); err != nil {
		return fmt.Errorf("finalize order %d: %w", orderID, err)
	}

	if err := c.cartRepo.Delete(ctx, tableID); err != nil {
		return err
	}
	c.publisher.OrderStatusChanged(ctx, orderID, tableID, model.StateInService, model.StateCompleted)

	// the completed session stays registered so a stale repeat trigger
	// lands on the no-op guard; the next Begin replaces it

	c.log.Info("payment session completed",
		zap.Int64("table_id", tableID),
		zap.Int64("order_id", orderID))
	return nil
}

// Shutdown cancels every live session; used on process teardown.
func (c *paymentCoordinatorImpl) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tableID, s := range c.sessions {
		s.cancel()
		delete(c.sessions, tableID)
	}
}
