package service

import (
	"context"
	"fmt"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BatchItem is one line of a bulk stock correction. Quantity is signed:
// positive adds stock, negative removes it.
type BatchItem struct {
	ProductID uuid.UUID
	Quantity  int
	Reason    string
}

// BatchError records why a single line item failed.
type BatchError struct {
	ProductID uuid.UUID `json:"product_id"`
	Error     string    `json:"error"`
}

// BatchResult reports per-row outcomes. The batch as a whole never rolls
// back: admins need to see exactly which lines failed, not lose the ones
// that succeeded.
type BatchResult struct {
	BatchID   uuid.UUID    `json:"batch_id"`
	Processed int          `json:"processed"`
	Errors    []BatchError `json:"errors"`
}

// BatchService applies a list of adjustments through the adjustment engine,
// isolating per-item failures under one shared batch id.
type BatchService interface {
	ApplyBatch(ctx context.Context, items []BatchItem, batchReason, createdBy string) (*BatchResult, error)
}

type batchService struct {
	adjuster AdjustmentService
}

func NewBatchService(adjuster AdjustmentService) BatchService {
	return &batchService{adjuster: adjuster}
}

func (s *batchService) ApplyBatch(ctx context.Context, items []BatchItem, batchReason, createdBy string) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: batch has no items", model.ErrValidation)
	}
	if createdBy == "" {
		return nil, fmt.Errorf("%w: created_by is required", model.ErrValidation)
	}

	batchID := uuid.New()
	result := &BatchResult{BatchID: batchID, Errors: []BatchError{}}

	for _, item := range items {
		if item.Quantity == 0 {
			result.Errors = append(result.Errors, BatchError{
				ProductID: item.ProductID,
				Error:     "quantity must be non-zero",
			})
			continue
		}

		movementType := model.MovementAdjustIn
		magnitude := item.Quantity
		if item.Quantity < 0 {
			movementType = model.MovementAdjustOut
			magnitude = -item.Quantity
		}

		reason := item.Reason
		if reason == "" {
			reason = batchReason
		}

		_, err := s.adjuster.Adjust(ctx, AdjustmentRequest{
			ProductID: item.ProductID,
			Type:      movementType,
			Quantity:  magnitude,
			Reason:    reason,
			CreatedBy: createdBy,
			BatchID:   &batchID,
		})
		if err != nil {
			result.Errors = append(result.Errors, BatchError{
				ProductID: item.ProductID,
				Error:     err.Error(),
			})
			continue
		}
		result.Processed++
	}

	log.Info().
		Str("batch_id", batchID.String()).
		Int("processed", result.Processed).
		Int("failed", len(result.Errors)).
		Msg("bulk adjustment applied")
	return result, nil
}
