package service

import (
	"context"

	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
)

// AlertSeverity ranks how urgently a stock alert needs attention.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityMedium   AlertSeverity = "medium"
)

// StockAlert is a read-side projection of one product's stock condition.
type StockAlert struct {
	ProductID         uuid.UUID         `json:"product_id"`
	Type              model.StockStatus `json:"type"`
	Severity          AlertSeverity     `json:"severity"`
	Quantity          int               `json:"quantity"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	ReorderPoint      int               `json:"reorder_point"`
	ReorderQuantity   int               `json:"reorder_quantity"`
}

// AlertService derives low-stock signals from current counters. Read-only:
// it never mutates state.
type AlertService interface {
	Alerts(ctx context.Context) ([]StockAlert, error)
}

type alertService struct {
	inv repository.InventoryRepository
}

func NewAlertService(inv repository.InventoryRepository) AlertService {
	return &alertService{inv: inv}
}

func (s *alertService) Alerts(ctx context.Context) ([]StockAlert, error) {
	records, _, err := s.inv.List(ctx, repository.InventoryFilter{LowStock: true, Limit: 500})
	if err != nil {
		return nil, err
	}

	alerts := make([]StockAlert, 0, len(records))
	for i := range records {
		rec := &records[i]
		// At most one primary alert per product.
		var severity AlertSeverity
		status := rec.Status(0)
		switch status {
		case model.StatusOutOfStock:
			severity = SeverityCritical
		case model.StatusLowStock:
			severity = SeverityMedium
		default:
			continue
		}
		alerts = append(alerts, StockAlert{
			ProductID:         rec.ProductID,
			Type:              status,
			Severity:          severity,
			Quantity:          rec.Quantity,
			LowStockThreshold: rec.LowStockThreshold,
			ReorderPoint:      rec.ReorderPoint,
			ReorderQuantity:   rec.ReorderQuantity,
		})
	}
	return alerts, nil
}
