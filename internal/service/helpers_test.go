package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tableside/internal/client"
	"tableside/internal/model"
	"tableside/internal/repository"
)

type orderPatchCall struct {
	orderID int64
	patch   client.OrderPatch
}

type tablePatchCall struct {
	tableID int64
	patch   client.TablePatch
}

type syncCall struct {
	orderID int64
	items   []client.ItemRef
}

// fakeOrderClient records every remote call and serves canned state.
type fakeOrderClient struct {
	mu sync.Mutex

	tables  map[int64]*model.Table
	orders  map[int64]*model.OrderRecord
	methods []model.PaymentMethod

	nextOrderID int64

	createCalls  []client.CreateOrderRequest
	syncCalls    []syncCall
	orderPatches []orderPatchCall
	tablePatches []tablePatchCall
	getOrderN    int

	// getOrderFn overrides GetOrder when set.
	getOrderFn     func(call int, orderID int64) (*model.OrderRecord, error)
	createOrderErr error
	syncItemsErr   error
	updateOrderErr error
	updateTableErr error
}

func newFakeOrderClient() *fakeOrderClient {
	return &fakeOrderClient{
		tables:      make(map[int64]*model.Table),
		orders:      make(map[int64]*model.OrderRecord),
		nextOrderID: 1,
	}
}

func (f *fakeOrderClient) CreateOrder(ctx context.Context, req *client.CreateOrderRequest) (*client.CreateOrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	f.createCalls = append(f.createCalls, *req)
	id := f.nextOrderID
	f.nextOrderID++
	f.orders[id] = &model.OrderRecord{
		ID:        id,
		TableID:   req.TableID,
		UserID:    req.UserID,
		Status:    model.StatePlaced,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	return &client.CreateOrderResponse{ID: id, CreatedAt: f.orders[id].CreatedAt}, nil
}

func (f *fakeOrderClient) UpdateOrder(ctx context.Context, orderID int64, patch *client.OrderPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateOrderErr != nil {
		return f.updateOrderErr
	}
	f.orderPatches = append(f.orderPatches, orderPatchCall{orderID: orderID, patch: *patch})
	if o, ok := f.orders[orderID]; ok && patch.Status != nil {
		o.Status = *patch.Status
	}
	return nil
}

func (f *fakeOrderClient) SyncItems(ctx context.Context, orderID int64, items []client.ItemRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncItemsErr != nil {
		return f.syncItemsErr
	}
	f.syncCalls = append(f.syncCalls, syncCall{orderID: orderID, items: items})
	return nil
}

func (f *fakeOrderClient) GetOrder(ctx context.Context, orderID int64) (*model.OrderRecord, error) {
	f.mu.Lock()
	f.getOrderN++
	n := f.getOrderN
	fn := f.getOrderFn
	f.mu.Unlock()

	if fn != nil {
		return fn(n, orderID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, &backendNotFound{}
}

func (f *fakeOrderClient) GetTable(ctx context.Context, tableID int64) (*model.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[tableID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, &backendNotFound{}
}

func (f *fakeOrderClient) ListTables(ctx context.Context) ([]model.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Table, 0, len(f.tables))
	for _, t := range f.tables {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeOrderClient) UpdateTable(ctx context.Context, tableID int64, patch *client.TablePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateTableErr != nil {
		return f.updateTableErr
	}
	f.tablePatches = append(f.tablePatches, tablePatchCall{tableID: tableID, patch: *patch})
	if t, ok := f.tables[tableID]; ok && patch.Status != nil {
		t.Status = *patch.Status
	}
	return nil
}

func (f *fakeOrderClient) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PaymentMethod(nil), f.methods...), nil
}

func (f *fakeOrderClient) syncCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncCalls)
}

func (f *fakeOrderClient) lastSyncCall() syncCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncCalls[len(f.syncCalls)-1]
}

func (f *fakeOrderClient) getOrderCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getOrderN
}

type backendNotFound struct{}

func (*backendNotFound) Error() string { return "not found" }

type publishedTransition struct {
	orderID int64
	tableID int64
	from    model.OrderState
	to      model.OrderState
}

// fakePublisher records lifecycle events instead of hitting a broker.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedTransition
}

func (p *fakePublisher) OrderStatusChanged(_ context.Context, orderID, tableID int64, from, to model.OrderState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedTransition{orderID: orderID, tableID: tableID, from: from, to: to})
}

func (p *fakePublisher) transitions() []publishedTransition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedTransition(nil), p.events...)
}

// vanishingCartRepo serves the real cache until loadLimit reads have
// happened, then pretends the row is gone. Simulates a cart cleared by a
// concurrent cancel.
type vanishingCartRepo struct {
	repository.CartRepository
	mu        sync.Mutex
	loads     int
	loadLimit int
}

func (r *vanishingCartRepo) Load(ctx context.Context, tableID int64) (*model.PendingCart, error) {
	r.mu.Lock()
	r.loads++
	gone := r.loads > r.loadLimit
	r.mu.Unlock()
	if gone {
		return nil, nil
	}
	return r.CartRepository.Load(ctx, tableID)
}

func newTestCartRepo(t interface{ Fatalf(string, ...any) }) repository.CartRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open in-memory cache: %v", err)
	}
	if err := db.AutoMigrate(&model.PendingCart{}); err != nil {
		t.Fatalf("migrate cache: %v", err)
	}
	return repository.NewCartRepository(db)
}
