package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tableside/internal/apperr"
	"tableside/internal/model"
)

func newCartService(t *testing.T) (CartService, *fakeOrderClient) {
	t.Helper()
	fake := newFakeOrderClient()
	repo := newTestCartRepo(t)
	syncSvc := NewOrderSyncService(fake, repo, zap.NewNop())
	return NewCartService(repo, syncSvc, zap.NewNop()), fake
}

func TestAddAndRemoveKeepTotalConsistent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCartService(t)

	itemX := model.CartItem{ProductID: 10, Name: "Pho Bo", UnitPrice: 100000}

	cart, err := svc.AddOrIncrement(ctx, 1, itemX, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), cart.TotalAmount)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	cart, err = svc.AddOrIncrement(ctx, 1, itemX, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(200000), cart.TotalAmount)

	cart, err = svc.AddOrIncrement(ctx, 1, itemX, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, int64(100000), cart.TotalAmount)

	cart, err = svc.AddOrIncrement(ctx, 1, itemX, -1)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(0), cart.TotalAmount)
}

func TestDecrementBelowZeroRemovesLine(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCartService(t)

	_, err := svc.AddOrIncrement(ctx, 2, model.CartItem{ProductID: 7, Name: "Tea", UnitPrice: 30000}, 2)
	require.NoError(t, err)

	cart, err := svc.AddOrIncrement(ctx, 2, model.CartItem{ProductID: 7}, -5)
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "no line may persist with quantity <= 0")

	reloaded, err := svc.Load(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Items)
}

func TestMutationWithoutOrderDoesNotSync(t *testing.T) {
	ctx := context.Background()
	svc, fake := newCartService(t)

	_, err := svc.AddOrIncrement(ctx, 3, model.CartItem{ProductID: 1, Name: "Rice", UnitPrice: 40000}, 1)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fake.syncCallCount())
}

func TestMutationWithOrderSyncsCompleteList(t *testing.T) {
	ctx := context.Background()
	fake := newFakeOrderClient()
	repo := newTestCartRepo(t)
	syncSvc := NewOrderSyncService(fake, repo, zap.NewNop())
	svc := NewCartService(repo, syncSvc, zap.NewNop())

	orderID := int64(42)
	require.NoError(t, repo.Save(ctx, &model.PendingCart{
		TableID: 5,
		OrderID: &orderID,
		Items: model.CartItems{
			{ProductID: 10, Name: "Pho Bo", UnitPrice: 100000, Quantity: 1},
		},
		TotalAmount: 100000,
		CreatedAt:   time.Now(),
	}))

	_, err := svc.AddOrIncrement(ctx, 5, model.CartItem{ProductID: 11, Name: "Bun Cha", UnitPrice: 80000}, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return fake.syncCallCount() == 1 }, time.Second, 5*time.Millisecond)
	call := fake.lastSyncCall()
	assert.Equal(t, orderID, call.orderID)
	require.Len(t, call.items, 2, "sync must carry the complete current list, not a delta")

	// the total update follows the item sync as a separate call
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.orderPatches) == 1
	}, time.Second, 5*time.Millisecond)
	fake.mu.Lock()
	patch := fake.orderPatches[0]
	fake.mu.Unlock()
	require.NotNil(t, patch.patch.TotalPayment)
	assert.Equal(t, int64(180000), *patch.patch.TotalPayment)
	assert.Nil(t, patch.patch.Status)

	// a second mutation carries the full remaining list again
	_, err = svc.Remove(ctx, 5, 10)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return fake.syncCallCount() == 2 }, time.Second, 5*time.Millisecond)
	call = fake.lastSyncCall()
	require.Len(t, call.items, 1)
	assert.Equal(t, int64(11), call.items[0].ProductID)
}

func TestSyncFailureDoesNotRevertLocalMutation(t *testing.T) {
	ctx := context.Background()
	fake := newFakeOrderClient()
	fake.syncItemsErr = &backendNotFound{}
	repo := newTestCartRepo(t)
	syncSvc := NewOrderSyncService(fake, repo, zap.NewNop())
	svc := NewCartService(repo, syncSvc, zap.NewNop())

	orderID := int64(9)
	require.NoError(t, repo.Save(ctx, &model.PendingCart{
		TableID:   4,
		OrderID:   &orderID,
		Items:     model.CartItems{},
		CreatedAt: time.Now(),
	}))

	cart, err := svc.AddOrIncrement(ctx, 4, model.CartItem{ProductID: 2, Name: "Beer", UnitPrice: 25000}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(75000), cart.TotalAmount)

	time.Sleep(50 * time.Millisecond)
	reloaded, err := svc.Load(ctx, 4)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 3, reloaded.Items[0].Quantity, "cache stays authoritative after a failed sync")
}

func TestEmptiedCartDoesNotOccupyTable(t *testing.T) {
	ctx := context.Background()
	fake := newFakeOrderClient()
	repo := newTestCartRepo(t)
	syncSvc := NewOrderSyncService(fake, repo, zap.NewNop())
	svc := NewCartService(repo, syncSvc, zap.NewNop())

	_, err := svc.AddOrIncrement(ctx, 5, model.CartItem{ProductID: 10, Name: "Pho Bo", UnitPrice: 100000}, 1)
	require.NoError(t, err)

	hasItems, err := repo.HasItems(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, model.TableOccupied, ProjectTableStatus(model.TableAvailable, hasItems))

	// removing the last line keeps the row persisted but frees the table
	_, err = svc.AddOrIncrement(ctx, 5, model.CartItem{ProductID: 10}, -1)
	require.NoError(t, err)

	hasItems, err = repo.HasItems(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, model.TableAvailable, ProjectTableStatus(model.TableAvailable, hasItems))
	assert.Equal(t, model.TableReserved, ProjectTableStatus(model.TableReserved, hasItems))
}

func TestNegativeDeltaWithoutCartRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCartService(t)

	_, err := svc.AddOrIncrement(ctx, 99, model.CartItem{ProductID: 1}, -1)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
}
