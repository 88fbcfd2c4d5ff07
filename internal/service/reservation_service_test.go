package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_HoldsStockWithoutMovingQuantity(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 100, LowStockThreshold: 5})

	res, err := reserver.Reserve(context.Background(), ReserveRequest{
		ProductID: productID,
		Quantity:  30,
		Reason:    "checkout",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.ID)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	rec := store.record(productID)
	assert.Equal(t, 100, rec.Quantity, "reserving must not move on-hand quantity")
	assert.Equal(t, 30, rec.ReservedQuantity)
	assert.Equal(t, 70, rec.Available())
	assert.Equal(t, 0, store.movementCount(), "a hold is not a ledger event")
}

func TestReserve_RejectsWhenAvailableInsufficient(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 100, ReservedQuantity: 80})

	_, err := reserver.Reserve(context.Background(), ReserveRequest{
		ProductID: productID,
		Quantity:  21,
	})
	require.ErrorIs(t, err, model.ErrInsufficientStock)

	// But exactly the remainder still fits.
	_, err = reserver.Reserve(context.Background(), ReserveRequest{
		ProductID: productID,
		Quantity:  20,
	})
	require.NoError(t, err)
}

func TestReserve_ExpiredHoldsDoNotBlockNewOnes(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 100, ReservedQuantity: 100})

	// A stale hold for the full quantity, expired a minute ago and not yet
	// swept. Its reserved units must be reclaimed inline.
	stale := &model.Reservation{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  100,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.reservations[stale.ID] = stale

	res, err := reserver.Reserve(context.Background(), ReserveRequest{
		ProductID: productID,
		Quantity:  60,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Quantity)

	rec := store.record(productID)
	assert.Equal(t, 60, rec.ReservedQuantity, "stale hold settled, new hold counted")
	assert.Equal(t, 1, store.reservationCount())
}

func TestReserve_ReleaseFreesCapacityForRetry(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 10})
	ctx := context.Background()

	first, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 6})
	require.NoError(t, err)
	assert.Equal(t, 4, store.record(productID).Available())

	_, err = reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 5})
	require.ErrorIs(t, err, model.ErrInsufficientStock)

	released, err := reserver.Release(ctx, first.ID, "cart abandoned")
	require.NoError(t, err)
	require.True(t, released)
	assert.Equal(t, 0, store.record(productID).ReservedQuantity)

	_, err = reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, store.record(productID).ReservedQuantity)
}

func TestReserve_Validation(t *testing.T) {
	_, _, reserver, _, _ := newTestServices()
	ctx := context.Background()

	_, err := reserver.Reserve(ctx, ReserveRequest{Quantity: 5})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = reserver.Reserve(ctx, ReserveRequest{ProductID: uuid.New(), Quantity: 0})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestGet_ExpiredReservationReportsNotFound(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 10})

	expired := &model.Reservation{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  5,
		ExpiresAt: time.Now().Add(-time.Second),
	}
	store.reservations[expired.ID] = expired

	_, err := reserver.Get(context.Background(), expired.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRelease_ReturnsStockAndIsIdempotent(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 50})
	ctx := context.Background()

	res, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 10})
	require.NoError(t, err)

	released, err := reserver.Release(ctx, res.ID, "customer cancelled")
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, 0, store.record(productID).ReservedQuantity)
	assert.Equal(t, 0, store.movementCount(), "release of an unconsumed hold is not a ledger event")

	// Second release is a no-op, not an error.
	released, err = reserver.Release(ctx, res.ID, "double click")
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, 0, store.record(productID).ReservedQuantity)
}

func TestRelease_UnknownIDIsNoop(t *testing.T) {
	_, _, reserver, _, _ := newTestServices()

	released, err := reserver.Release(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestReleaseByOrder(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	orderID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 50})
	ctx := context.Background()

	_, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 8, OrderID: &orderID})
	require.NoError(t, err)

	released, err := reserver.ReleaseByOrder(ctx, orderID, "payment failed")
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, 0, store.record(productID).ReservedQuantity)
}

func TestConsume_ConvertsHoldIntoSale(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	orderID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 50, LowStockThreshold: 5})
	ctx := context.Background()

	res, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 10, OrderID: &orderID})
	require.NoError(t, err)

	rec, err := reserver.Consume(ctx, res.ID, "cashier-1")
	require.NoError(t, err)

	assert.Equal(t, 40, rec.Quantity)
	assert.Equal(t, 0, store.record(productID).ReservedQuantity)
	assert.Equal(t, 0, store.reservationCount())

	require.Equal(t, 1, store.movementCount())
	m := store.movements[0]
	assert.Equal(t, model.MovementSale, m.Type)
	assert.Equal(t, 10, m.Quantity)
	require.NotNil(t, m.ReferenceType)
	assert.Equal(t, "order", *m.ReferenceType)
	require.NotNil(t, m.ReferenceID)
	assert.Equal(t, orderID, *m.ReferenceID)
}

func TestConsume_FullyReservedStock(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 7})
	ctx := context.Background()

	res, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 7})
	require.NoError(t, err)

	// The sale settles against stock freed by its own hold.
	rec, err := reserver.Consume(ctx, res.ID, "cashier-1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
	assert.Equal(t, 0, store.reservationCount())
}

func TestConsumeByOrder(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	orderID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 30})
	ctx := context.Background()

	_, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 6, OrderID: &orderID})
	require.NoError(t, err)

	rec, err := reserver.ConsumeByOrder(ctx, orderID, "cashier-2")
	require.NoError(t, err)
	assert.Equal(t, 24, rec.Quantity)

	_, err = reserver.ConsumeByOrder(ctx, orderID, "cashier-2")
	assert.ErrorIs(t, err, model.ErrNotFound, "already consumed")
}

func TestConsume_ExpiredReservationFails(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 50})

	expired := &model.Reservation{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  10,
		ExpiresAt: time.Now().Add(-time.Second),
	}
	store.reservations[expired.ID] = expired

	_, err := reserver.Consume(context.Background(), expired.ID, "cashier-1")
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 50, store.record(productID).Quantity, "expired hold must not decrement stock")
	assert.Equal(t, 0, store.movementCount())
}

func TestSweepExpired_ReleasesOnlyExpiredHolds(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 100, ReservedQuantity: 30})

	now := time.Now()
	for _, exp := range []time.Time{now.Add(-time.Minute), now.Add(-time.Hour)} {
		res := &model.Reservation{ID: uuid.New(), ProductID: productID, Quantity: 10, ExpiresAt: exp}
		store.reservations[res.ID] = res
	}
	live := &model.Reservation{ID: uuid.New(), ProductID: productID, Quantity: 10, ExpiresAt: now.Add(time.Hour)}
	store.reservations[live.ID] = live

	released, err := reserver.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	rec := store.record(productID)
	assert.Equal(t, 10, rec.ReservedQuantity, "only the live hold remains counted")
	assert.Equal(t, 1, store.reservationCount())

	// A second sweep finds nothing.
	released, err = reserver.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestListByProduct_ExcludesExpiredHolds(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 100})
	ctx := context.Background()

	live, err := reserver.Reserve(ctx, ReserveRequest{ProductID: productID, Quantity: 5})
	require.NoError(t, err)

	stale := &model.Reservation{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  3,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.reservations[stale.ID] = stale

	holds, err := reserver.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, live.ID, holds[0].ID)

	_, err = reserver.ListByProduct(ctx, uuid.Nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

// TestReserve_NeverOversellsUnderContention hammers one product with far more
// concurrent holds than stock. The reserved total must land exactly on the
// on-hand quantity with every extra request rejected.
func TestReserve_NeverOversellsUnderContention(t *testing.T) {
	store, _, reserver, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 500, LowStockThreshold: 5})

	const attempts = 1000
	var succeeded, rejected atomic.Int64
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := reserver.Reserve(context.Background(), ReserveRequest{
				ProductID: productID,
				Quantity:  1,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, model.ErrInsufficientStock):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(500), succeeded.Load())
	assert.Equal(t, int64(500), rejected.Load())

	rec := store.record(productID)
	assert.Equal(t, 500, rec.ReservedQuantity)
	assert.Equal(t, 0, rec.Available())
	assert.Equal(t, 500, store.reservationCount())
}
