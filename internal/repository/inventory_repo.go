package repository

import (
	"context"
	"errors"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryFilter defines filters for listing inventory records.
type InventoryFilter struct {
	ProductID *uuid.UUID
	LowStock  bool // only records at or below their low-stock threshold
	Page      int
	Limit     int
}

// InventoryRepository is the persistence boundary for per-product stock
// counters. Counter writes only happen through the *Tx methods, inside a
// transaction opened with WithTx — services never read-then-write across two
// round trips.
type InventoryRepository interface {
	Get(ctx context.Context, productID uuid.UUID) (*model.InventoryRecord, error)
	List(ctx context.Context, filter InventoryFilter) ([]model.InventoryRecord, int64, error)

	// GetOrCreateForUpdateTx loads the record under a row lock, lazily
	// materializing a zero-quantity row for unseen products.
	GetOrCreateForUpdateTx(tx *gorm.DB, productID uuid.UUID) (*model.InventoryRecord, error)
	SaveTx(tx *gorm.DB, rec *model.InventoryRecord) error
	// AddReservedTx adjusts the cached reserved counter with an expression
	// update; the row must already be locked by the caller's transaction.
	AddReservedTx(tx *gorm.DB, productID uuid.UUID, delta int) error

	// WithTx runs fn inside a single database transaction — the atomic unit
	// for every mutation of the shared counters.
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Get(ctx context.Context, productID uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) List(ctx context.Context, filter InventoryFilter) ([]model.InventoryRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryRecord{})

	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.LowStock {
		q = q.Where("quantity <= low_stock_threshold")
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

	var records []model.InventoryRecord
	err := q.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	return records, total, err
}

func (r *inventoryRepo) GetOrCreateForUpdateTx(tx *gorm.DB, productID uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).First(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Lazy materialization. DoNothing absorbs the race where a concurrent
	// transaction inserted the row first; the locked re-read settles it.
	fresh := model.InventoryRecord{ProductID: productID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) SaveTx(tx *gorm.DB, rec *model.InventoryRecord) error {
	return tx.Save(rec).Error
}

func (r *inventoryRepo) AddReservedTx(tx *gorm.DB, productID uuid.UUID, delta int) error {
	return tx.Model(&model.InventoryRecord{}).Where("product_id = ?", productID).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", delta)).Error
}

func (r *inventoryRepo) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *inventoryRepo) DB() *gorm.DB { return r.db }

// IsRetryableTxError reports whether err is a transient transaction failure
// (serialization failure or deadlock) that the caller may safely retry.
func IsRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
