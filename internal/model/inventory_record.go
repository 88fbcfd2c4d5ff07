package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus is derived from the current counters — it is never stored.
type StockStatus string

const (
	StatusActive      StockStatus = "ACTIVE"
	StatusLowStock    StockStatus = "LOW_STOCK"
	StatusOutOfStock  StockStatus = "OUT_OF_STOCK"
	StatusOverstocked StockStatus = "OVERSTOCKED"
)

// InventoryRecord holds the durable per-product stock counters and policy
// thresholds. One row per product, lazily materialized the first time a
// product is adjusted or reserved. Quantity and ReservedQuantity are mutated
// exclusively inside the adjustment engine / reservation manager transactions.
type InventoryRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	Quantity         int `gorm:"not null;default:0"`
	ReservedQuantity int `gorm:"not null;default:0"`

	LowStockThreshold int `gorm:"not null;default:5"`
	ReorderPoint      int `gorm:"not null;default:0"`
	ReorderQuantity   int `gorm:"not null;default:0"`

	AllowBackorder bool `gorm:"not null;default:false"`

	AverageCost decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	LastCost    decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (InventoryRecord) TableName() string { return "inventory_records" }

// Available returns on-hand quantity minus all live reservations.
func (r InventoryRecord) Available() int {
	return r.Quantity - r.ReservedQuantity
}

// Status derives the stock status. overstockMultiplier is the configured
// multiple of LowStockThreshold above which a product counts as overstocked;
// values < 1 disable the overstock check.
func (r InventoryRecord) Status(overstockMultiplier int) StockStatus {
	switch {
	case r.Quantity <= 0:
		return StatusOutOfStock
	case r.Quantity <= r.LowStockThreshold:
		return StatusLowStock
	case overstockMultiplier >= 1 && r.LowStockThreshold > 0 &&
		r.Quantity > r.LowStockThreshold*overstockMultiplier:
		return StatusOverstocked
	default:
		return StatusActive
	}
}
