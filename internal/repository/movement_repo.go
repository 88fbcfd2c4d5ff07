package repository

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter defines filters for listing ledger entries.
type MovementFilter struct {
	ProductID *uuid.UUID
	Type      model.MovementType
	CreatedBy string
	BatchID   *uuid.UUID
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// MovementSummary aggregates inbound vs outbound totals for a trailing window.
type MovementSummary struct {
	ProductID     uuid.UUID `json:"product_id"`
	WindowDays    int       `json:"window_days"`
	InboundTotal  int64     `json:"inbound_total"`
	OutboundTotal int64     `json:"outbound_total"`
	NetChange     int64     `json:"net_change"`
	MovementCount int64     `json:"movement_count"`
}

// MovementRepository is the append-only movement ledger. There are
// deliberately no update or delete methods: a committed row is immutable.
type MovementRepository interface {
	// CreateTx appends one ledger row inside the caller's transaction. Rows
	// whose quantity triple contradicts the declared direction of their type
	// are rejected with ErrValidation before touching the database.
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error)
	Summarize(ctx context.Context, productID uuid.UUID, windowDays int) (*MovementSummary, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository { return &movementRepo{db: db} }

func (r *movementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	if !m.Consistent() {
		return fmt.Errorf("%w: movement %s qty=%d prev=%d new=%d",
			model.ErrValidation, m.Type, m.Quantity, m.PreviousQuantity, m.NewQuantity)
	}
	return tx.Create(m).Error
}

func (r *movementRepo) List(ctx context.Context, filter MovementFilter) ([]model.StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{})

	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.BatchID != nil {
		q = q.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.StockMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}

func (r *movementRepo) Summarize(ctx context.Context, productID uuid.UUID, windowDays int) (*MovementSummary, error) {
	if windowDays < 1 {
		windowDays = 30
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	var row struct {
		Inbound  int64
		Outbound int64
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select(
			"COALESCE(SUM(CASE WHEN type IN ? THEN quantity ELSE 0 END), 0) AS inbound, "+
				"COALESCE(SUM(CASE WHEN type IN ? THEN quantity ELSE 0 END), 0) AS outbound, "+
				"COUNT(*) AS count",
			model.TypesByDirection(model.DirectionIn),
			model.TypesByDirection(model.DirectionOut),
		).
		Where("product_id = ? AND created_at >= ?", productID, since).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &MovementSummary{
		ProductID:     productID,
		WindowDays:    windowDays,
		InboundTotal:  row.Inbound,
		OutboundTotal: row.Outbound,
		NetChange:     row.Inbound - row.Outbound,
		MovementCount: row.Count,
	}, nil
}
