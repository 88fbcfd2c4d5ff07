package service

import (
	"context"
	"testing"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjust_InboundIncreasesQuantityAndAppendsLedgerRow(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()

	rec, err := adjuster.Adjust(context.Background(), AdjustmentRequest{
		ProductID: productID,
		Type:      model.MovementRestock,
		Quantity:  50,
		Reason:    "initial stock",
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Quantity)

	require.Equal(t, 1, store.movementCount())
	m := store.movements[0]
	assert.Equal(t, model.MovementRestock, m.Type)
	assert.Equal(t, 50, m.Quantity)
	assert.Equal(t, 0, m.PreviousQuantity)
	assert.Equal(t, 50, m.NewQuantity)
	assert.True(t, m.Consistent())
}

func TestAdjust_OutboundBelowZeroRejectedWithoutBackorder(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 10, LowStockThreshold: 5})

	_, err := adjuster.Adjust(context.Background(), AdjustmentRequest{
		ProductID: productID,
		Type:      model.MovementSale,
		Quantity:  11,
		CreatedBy: "tester",
	})
	require.ErrorIs(t, err, model.ErrInsufficientStock)

	// Neither the counter nor the ledger moved.
	assert.Equal(t, 10, store.record(productID).Quantity)
	assert.Equal(t, 0, store.movementCount())
}

func TestAdjust_OutboundNeverStrandsLiveHolds(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 10, ReservedQuantity: 6, LowStockThreshold: 5})

	// 10 on hand with 6 held: writing off 5 would leave the holds unbacked.
	_, err := adjuster.Adjust(context.Background(), AdjustmentRequest{
		ProductID: productID,
		Type:      model.MovementDamage,
		Quantity:  5,
		CreatedBy: "tester",
	})
	require.ErrorIs(t, err, model.ErrInsufficientStock)
	assert.Equal(t, 10, store.record(productID).Quantity)
	assert.Equal(t, 0, store.movementCount())

	// Writing off only the unreserved remainder is fine.
	rec, err := adjuster.Adjust(context.Background(), AdjustmentRequest{
		ProductID: productID,
		Type:      model.MovementDamage,
		Quantity:  4,
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, rec.Quantity)
	assert.Equal(t, 0, rec.Available())
}

func TestAdjust_BackorderAllowsNegativeQuantity(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()
	store.seed(model.InventoryRecord{ProductID: productID, Quantity: 3, AllowBackorder: true, LowStockThreshold: 5})

	rec, err := adjuster.Adjust(context.Background(), AdjustmentRequest{
		ProductID: productID,
		Type:      model.MovementSale,
		Quantity:  5,
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, -2, rec.Quantity)
}

func TestAdjust_ValidationErrors(t *testing.T) {
	_, adjuster, _, _, _ := newTestServices()
	ctx := context.Background()
	productID := uuid.New()

	cases := []struct {
		name string
		req  AdjustmentRequest
	}{
		{"zero quantity", AdjustmentRequest{ProductID: productID, Type: model.MovementRestock, Quantity: 0, CreatedBy: "t"}},
		{"negative quantity", AdjustmentRequest{ProductID: productID, Type: model.MovementRestock, Quantity: -5, CreatedBy: "t"}},
		{"unknown type", AdjustmentRequest{ProductID: productID, Type: "teleport", Quantity: 1, CreatedBy: "t"}},
		{"missing product", AdjustmentRequest{Type: model.MovementRestock, Quantity: 1, CreatedBy: "t"}},
		{"missing created_by", AdjustmentRequest{ProductID: productID, Type: model.MovementRestock, Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := adjuster.Adjust(ctx, tc.req)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestAdjust_WeightedAverageCost(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()
	ctx := context.Background()

	cost10 := decimal.NewFromInt(10)
	_, err := adjuster.Adjust(ctx, AdjustmentRequest{
		ProductID: productID, Type: model.MovementRestock, Quantity: 100,
		UnitCost: &cost10, CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.True(t, store.record(productID).AverageCost.Equal(cost10))

	// 100 @ 10 + 100 @ 20 → average 15
	cost20 := decimal.NewFromInt(20)
	_, err = adjuster.Adjust(ctx, AdjustmentRequest{
		ProductID: productID, Type: model.MovementPurchase, Quantity: 100,
		UnitCost: &cost20, CreatedBy: "tester",
	})
	require.NoError(t, err)

	rec := store.record(productID)
	assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(15)), "got %s", rec.AverageCost)
	assert.True(t, rec.LastCost.Equal(cost20))
}

func TestAdjust_OutboundLeavesAverageCostUntouched(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()
	ctx := context.Background()

	cost := decimal.NewFromInt(7)
	_, err := adjuster.Adjust(ctx, AdjustmentRequest{
		ProductID: productID, Type: model.MovementRestock, Quantity: 20,
		UnitCost: &cost, CreatedBy: "tester",
	})
	require.NoError(t, err)

	_, err = adjuster.Adjust(ctx, AdjustmentRequest{
		ProductID: productID, Type: model.MovementDamage, Quantity: 5, CreatedBy: "tester",
	})
	require.NoError(t, err)

	assert.True(t, store.record(productID).AverageCost.Equal(cost))
}

func TestAdjust_LazyRecordCreationOnFirstMovement(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()

	rec, err := adjuster.Adjust(context.Background(), AdjustmentRequest{
		ProductID: productID,
		Type:      model.MovementTransferIn,
		Quantity:  7,
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, rec.Quantity)
	assert.Equal(t, productID, store.record(productID).ProductID)
}

func TestAdjust_LedgerReplayMatchesCounter(t *testing.T) {
	store, adjuster, _, _, _ := newTestServices()
	productID := uuid.New()
	ctx := context.Background()

	steps := []struct {
		typ model.MovementType
		qty int
	}{
		{model.MovementRestock, 100},
		{model.MovementSale, 30},
		{model.MovementReturn, 5},
		{model.MovementDamage, 2},
		{model.MovementAdjustOut, 3},
	}
	for _, s := range steps {
		_, err := adjuster.Adjust(ctx, AdjustmentRequest{
			ProductID: productID, Type: s.typ, Quantity: s.qty, CreatedBy: "tester",
		})
		require.NoError(t, err)
	}

	replayed := 0
	for _, m := range store.movements {
		dir, ok := m.Type.Direction()
		require.True(t, ok)
		require.Equal(t, replayed, m.PreviousQuantity)
		if dir == model.DirectionIn {
			replayed += m.Quantity
		} else {
			replayed -= m.Quantity
		}
		require.Equal(t, replayed, m.NewQuantity)
	}
	assert.Equal(t, 70, replayed)
	assert.Equal(t, 70, store.record(productID).Quantity)
}
