package repository

import (
	"context"
	"errors"
	"time"

	"stockledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationRepository persists time-boxed stock holds. Row deletion is the
// completion signal for every terminal state, which is what makes release and
// the expiry sweep idempotent: a row can only be deleted once.
type ReservationRepository interface {
	CreateTx(tx *gorm.DB, res *model.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Reservation, error)

	// DeleteTx removes one reservation; the returned bool is false when the
	// row was already gone.
	DeleteTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	// DeleteIfExpiredTx removes the row only when its expiresAt is still in
	// the past, guarding against concurrent sweeps double-releasing.
	DeleteIfExpiredTx(tx *gorm.DB, id uuid.UUID, now time.Time) (bool, error)
	// DeleteExpiredForProductTx purges a single product's expired holds and
	// returns the removed rows so the caller can settle the cached counter.
	DeleteExpiredForProductTx(tx *gorm.DB, productID uuid.UUID, now time.Time) ([]model.Reservation, error)

	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
	ListLiveByProduct(ctx context.Context, productID uuid.UUID, now time.Time) ([]model.Reservation, error)
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) CreateTx(tx *gorm.DB, res *model.Reservation) error {
	return tx.Create(res).Error
}

func (r *reservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.WithContext(ctx).First(&res, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Where("id = ?", id).Delete(&model.Reservation{})
	return res.RowsAffected > 0, res.Error
}

func (r *reservationRepo) DeleteIfExpiredTx(tx *gorm.DB, id uuid.UUID, now time.Time) (bool, error) {
	res := tx.Where("id = ? AND expires_at < ?", id, now).Delete(&model.Reservation{})
	return res.RowsAffected > 0, res.Error
}

func (r *reservationRepo) DeleteExpiredForProductTx(tx *gorm.DB, productID uuid.UUID, now time.Time) ([]model.Reservation, error) {
	var expired []model.Reservation
	err := tx.Clauses(clause.Returning{}).
		Where("product_id = ? AND expires_at < ?", productID, now).
		Delete(&expired).Error
	return expired, err
}

func (r *reservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	if limit < 1 {
		limit = 100
	}
	var expired []model.Reservation
	err := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Order("expires_at ASC").Limit(limit).
		Find(&expired).Error
	return expired, err
}

func (r *reservationRepo) ListLiveByProduct(ctx context.Context, productID uuid.UUID, now time.Time) ([]model.Reservation, error) {
	var live []model.Reservation
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND expires_at >= ?", productID, now).
		Order("created_at ASC").
		Find(&live).Error
	return live, err
}
