package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementFilter holds query params for the ledger listing endpoint.
// Date bounds use RFC 3339.
type MovementFilter struct {
	ProductID string `form:"product_id"`
	Type      string `form:"type"`
	CreatedBy string `form:"created_by"`
	BatchID   string `form:"batch_id"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type MovementResponse struct {
	ID               string           `json:"id"`
	ProductID        string           `json:"product_id"`
	Type             string           `json:"type"`
	Quantity         int              `json:"quantity"`
	PreviousQuantity int              `json:"previous_quantity"`
	NewQuantity      int              `json:"new_quantity"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	ReferenceType    *string          `json:"reference_type,omitempty"`
	ReferenceID      *string          `json:"reference_id,omitempty"`
	CreatedBy        string           `json:"created_by"`
	BatchID          *string          `json:"batch_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
