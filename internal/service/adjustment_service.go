package service

import (
	"context"
	"fmt"

	"stockledger/internal/model"
	"stockledger/internal/repository"
	"stockledger/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdjustmentRequest describes one stock mutation. Quantity is always a
// positive magnitude; direction comes from Type.
type AdjustmentRequest struct {
	ProductID     uuid.UUID
	Type          model.MovementType
	Quantity      int
	UnitCost      *decimal.Decimal
	Reason        string
	ReferenceType *string
	ReferenceID   *uuid.UUID
	CreatedBy     string
	BatchID       *uuid.UUID
}

// AdjustmentService is the only writer of InventoryRecord.Quantity and the
// movement ledger. Every mutation commits the counter update and the ledger
// row as one transaction, or neither.
type AdjustmentService interface {
	Adjust(ctx context.Context, req AdjustmentRequest) (*model.InventoryRecord, error)
	// AdjustTx runs the same algorithm inside an already-open transaction —
	// used by callers that compose an adjustment with other writes (e.g.
	// reservation consumption).
	AdjustTx(tx *gorm.DB, req AdjustmentRequest) (*model.InventoryRecord, error)
}

type adjustmentService struct {
	inv        repository.InventoryRepository
	movements  repository.MovementRepository
	dispatcher *worker.Dispatcher // nil when alerting is disabled (tests)
	maxRetries int
}

func NewAdjustmentService(
	inv repository.InventoryRepository,
	movements repository.MovementRepository,
	dispatcher *worker.Dispatcher,
	maxRetries int,
) AdjustmentService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &adjustmentService{
		inv:        inv,
		movements:  movements,
		dispatcher: dispatcher,
		maxRetries: maxRetries,
	}
}

func (s *adjustmentService) Adjust(ctx context.Context, req AdjustmentRequest) (*model.InventoryRecord, error) {
	if err := validateAdjustment(req); err != nil {
		return nil, err
	}

	var rec *model.InventoryRecord
	for attempt := 1; ; attempt++ {
		err := s.inv.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			rec, txErr = s.AdjustTx(tx, req)
			return txErr
		})
		if err == nil {
			break
		}
		if repository.IsRetryableTxError(err) {
			if attempt < s.maxRetries {
				log.Warn().
					Str("product_id", req.ProductID.String()).
					Str("type", string(req.Type)).
					Int("attempt", attempt).
					Msg("adjustment conflicted, retrying")
				continue
			}
			return nil, fmt.Errorf("%w: %v", model.ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	s.notifyThreshold(ctx, rec)
	return rec, nil
}

func (s *adjustmentService) AdjustTx(tx *gorm.DB, req AdjustmentRequest) (*model.InventoryRecord, error) {
	if err := validateAdjustment(req); err != nil {
		return nil, err
	}
	dir, _ := req.Type.Direction()

	rec, err := s.inv.GetOrCreateForUpdateTx(tx, req.ProductID)
	if err != nil {
		return nil, err
	}

	previous := rec.Quantity
	var newQuantity int
	if dir == model.DirectionIn {
		newQuantity = previous + req.Quantity
	} else {
		newQuantity = previous - req.Quantity
	}

	// Outbound movements may not leave live holds unbacked: quantity stays at
	// or above reserved_quantity unless the product allows backorders.
	if dir == model.DirectionOut && !rec.AllowBackorder && newQuantity < rec.ReservedQuantity {
		return nil, fmt.Errorf("%w: product %s has %d on hand (%d reserved), requested %d",
			model.ErrInsufficientStock, req.ProductID, previous, rec.ReservedQuantity, req.Quantity)
	}

	if dir == model.DirectionIn && req.UnitCost != nil {
		applyCost(rec, req.Quantity, *req.UnitCost)
	}

	rec.Quantity = newQuantity
	if err := s.inv.SaveTx(tx, rec); err != nil {
		return nil, err
	}

	movement := &model.StockMovement{
		ProductID:        req.ProductID,
		Type:             req.Type,
		Quantity:         req.Quantity,
		PreviousQuantity: previous,
		NewQuantity:      newQuantity,
		UnitCost:         req.UnitCost,
		Reason:           req.Reason,
		ReferenceType:    req.ReferenceType,
		ReferenceID:      req.ReferenceID,
		CreatedBy:        req.CreatedBy,
		BatchID:          req.BatchID,
	}
	if err := s.movements.CreateTx(tx, movement); err != nil {
		return nil, err
	}

	return rec, nil
}

// applyCost updates the weighted moving average cost on inbound movements.
// On-hand quantity below zero (backorder) contributes no weight.
func applyCost(rec *model.InventoryRecord, quantity int, unitCost decimal.Decimal) {
	onHand := rec.Quantity
	if onHand < 0 {
		onHand = 0
	}
	if onHand == 0 || rec.AverageCost.IsZero() {
		rec.AverageCost = unitCost
	} else {
		prevValue := rec.AverageCost.Mul(decimal.NewFromInt(int64(onHand)))
		newValue := unitCost.Mul(decimal.NewFromInt(int64(quantity)))
		totalUnits := decimal.NewFromInt(int64(onHand + quantity))
		rec.AverageCost = prevValue.Add(newValue).DivRound(totalUnits, 4)
	}
	rec.LastCost = unitCost
}

func validateAdjustment(req AdjustmentRequest) error {
	if req.ProductID == uuid.Nil {
		return fmt.Errorf("%w: product id is required", model.ErrValidation)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", model.ErrValidation, req.Quantity)
	}
	if _, ok := req.Type.Direction(); !ok {
		return fmt.Errorf("%w: unknown movement type %q", model.ErrValidation, req.Type)
	}
	if req.CreatedBy == "" {
		return fmt.Errorf("%w: created_by is required", model.ErrValidation)
	}
	return nil
}

// notifyThreshold enqueues a low-stock alert job after a committed adjustment
// left the product at or below its threshold. Best-effort: a failed enqueue
// never fails the adjustment.
func (s *adjustmentService) notifyThreshold(ctx context.Context, rec *model.InventoryRecord) {
	if s.dispatcher == nil || rec == nil {
		return
	}
	status := rec.Status(0)
	if status != model.StatusOutOfStock && status != model.StatusLowStock {
		return
	}
	err := s.dispatcher.EnqueueAlert(ctx, worker.AlertPayload{
		ProductID:         rec.ProductID.String(),
		Status:            string(status),
		Quantity:          rec.Quantity,
		LowStockThreshold: rec.LowStockThreshold,
		ReorderQuantity:   rec.ReorderQuantity,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("product_id", rec.ProductID.String()).
			Msg("failed to enqueue stock alert")
	}
}
