package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType is the closed set of reasons a stock counter can change.
type MovementType string

const (
	// Inbound
	MovementRestock    MovementType = "restock"
	MovementPurchase   MovementType = "purchase"
	MovementReturn     MovementType = "return"
	MovementTransferIn MovementType = "transfer_in"
	MovementAdjustIn   MovementType = "adjustment_in"
	MovementRelease    MovementType = "release"

	// Outbound
	MovementSale        MovementType = "sale"
	MovementTransferOut MovementType = "transfer_out"
	MovementDamage      MovementType = "damage"
	MovementTheft       MovementType = "theft"
	MovementExpiry      MovementType = "expiry"
	MovementAdjustOut   MovementType = "adjustment_out"
	MovementReserve     MovementType = "reserve"
)

// MovementDirection tags each movement type as stock-increasing or
// stock-decreasing.
type MovementDirection string

const (
	DirectionIn  MovementDirection = "IN"
	DirectionOut MovementDirection = "OUT"
)

// movementDirections is the single classification table. Call sites must go
// through Direction(); string comparisons against raw type names are not
// allowed anywhere else.
var movementDirections = map[MovementType]MovementDirection{
	MovementRestock:    DirectionIn,
	MovementPurchase:   DirectionIn,
	MovementReturn:     DirectionIn,
	MovementTransferIn: DirectionIn,
	MovementAdjustIn:   DirectionIn,
	MovementRelease:    DirectionIn,

	MovementSale:        DirectionOut,
	MovementTransferOut: DirectionOut,
	MovementDamage:      DirectionOut,
	MovementTheft:       DirectionOut,
	MovementExpiry:      DirectionOut,
	MovementAdjustOut:   DirectionOut,
	MovementReserve:     DirectionOut,
}

// Direction returns the classification for t and whether t is a known type.
func (t MovementType) Direction() (MovementDirection, bool) {
	d, ok := movementDirections[t]
	return d, ok
}

// TypesByDirection lists every movement type classified under d.
func TypesByDirection(d MovementDirection) []MovementType {
	var types []MovementType
	for t, dir := range movementDirections {
		if dir == d {
			types = append(types, t)
		}
	}
	return types
}

// IsAdjustment reports whether t is a manual correction rather than a
// business-flow movement.
func (t MovementType) IsAdjustment() bool {
	return t == MovementAdjustIn || t == MovementAdjustOut
}

// StockMovement is one append-only ledger row. Rows are never updated or
// deleted after creation; PreviousQuantity/NewQuantity are captured at commit
// time so the ledger can reconstruct any product's quantity by replay.
type StockMovement struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID    `gorm:"type:uuid;not null;index:idx_movements_product_created"`
	Type      MovementType `gorm:"not null"`

	// Quantity is always a positive magnitude; direction comes from Type.
	Quantity         int `gorm:"not null"`
	PreviousQuantity int `gorm:"not null"`
	NewQuantity      int `gorm:"not null"`

	UnitCost *decimal.Decimal `gorm:"type:decimal(12,4)"`

	Reason        string
	ReferenceType *string    `gorm:"index"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index"`
	CreatedBy     string     `gorm:"not null;index"`
	BatchID       *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt     time.Time  `gorm:"index:idx_movements_product_created"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// Consistent reports whether the quantity triple matches the declared
// direction of the movement type.
func (m *StockMovement) Consistent() bool {
	dir, ok := m.Type.Direction()
	if !ok || m.Quantity <= 0 {
		return false
	}
	if dir == DirectionIn {
		return m.NewQuantity == m.PreviousQuantity+m.Quantity
	}
	return m.NewQuantity == m.PreviousQuantity-m.Quantity
}
