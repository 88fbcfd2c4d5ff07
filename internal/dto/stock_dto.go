package dto

import (
	"time"

	"stockledger/internal/model"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest is one manual stock mutation submitted by a collaborator
// (order confirmation, returns processing, admin correction).
type AdjustStockRequest struct {
	ProductID     string           `json:"product_id" validate:"required,uuid"`
	Type          string           `json:"type" validate:"required"`
	Quantity      int              `json:"quantity" validate:"required,gt=0"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason        string           `json:"reason" validate:"required"`
	ReferenceType *string          `json:"reference_type,omitempty"`
	ReferenceID   *string          `json:"reference_id,omitempty" validate:"omitempty,uuid"`
}

// BatchItemRequest is one line of a bulk correction; quantity is signed.
type BatchItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required"`
	Reason    string `json:"reason"`
}

type ApplyBatchRequest struct {
	Items  []BatchItemRequest `json:"items" validate:"required,min=1,dive"`
	Reason string             `json:"reason" validate:"required"`
}

// InventoryFilter holds query params for listing inventory records.
type InventoryFilter struct {
	ProductID string `form:"product_id"`
	LowStock  bool   `form:"low_stock"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type InventoryRecordResponse struct {
	ProductID         string            `json:"product_id"`
	Quantity          int               `json:"quantity"`
	ReservedQuantity  int               `json:"reserved_quantity"`
	AvailableQuantity int               `json:"available_quantity"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	ReorderPoint      int               `json:"reorder_point"`
	ReorderQuantity   int               `json:"reorder_quantity"`
	AllowBackorder    bool              `json:"allow_backorder"`
	AverageCost       decimal.Decimal   `json:"average_cost"`
	LastCost          decimal.Decimal   `json:"last_cost"`
	Status            model.StockStatus `json:"status"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type InventoryListResponse struct {
	Data  []InventoryRecordResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}
