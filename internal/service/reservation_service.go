package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const sweepBatchSize = 500

// ReserveRequest describes a new hold against available stock.
type ReserveRequest struct {
	ProductID  uuid.UUID
	Quantity   int
	TTLMinutes int // 0 means the configured default
	Reason     string
	OrderID    *uuid.UUID
	CartID     *uuid.UUID
}

// ReservationService manages time-boxed holds. A reservation is created at
// checkout start and ends one of three ways: explicit release, expiry sweep,
// or consumption (converted into a real decrement plus a ledger row in the
// same transaction).
type ReservationService interface {
	Reserve(ctx context.Context, req ReserveRequest) (*model.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	Release(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	ReleaseByOrder(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
	Consume(ctx context.Context, id uuid.UUID, createdBy string) (*model.InventoryRecord, error)
	ConsumeByOrder(ctx context.Context, orderID uuid.UUID, createdBy string) (*model.InventoryRecord, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Reservation, error)
	SweepExpired(ctx context.Context) (int, error)
}

type reservationService struct {
	inv          repository.InventoryRepository
	reservations repository.ReservationRepository
	adjuster     AdjustmentService
	defaultTTL   time.Duration
}

func NewReservationService(
	inv repository.InventoryRepository,
	reservations repository.ReservationRepository,
	adjuster AdjustmentService,
	defaultTTLMinutes int,
) ReservationService {
	if defaultTTLMinutes < 1 {
		defaultTTLMinutes = 15
	}
	return &reservationService{
		inv:          inv,
		reservations: reservations,
		adjuster:     adjuster,
		defaultTTL:   time.Duration(defaultTTLMinutes) * time.Minute,
	}
}

func (s *reservationService) Reserve(ctx context.Context, req ReserveRequest) (*model.Reservation, error) {
	if req.ProductID == uuid.Nil {
		return nil, fmt.Errorf("%w: product id is required", model.ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", model.ErrValidation, req.Quantity)
	}

	ttl := s.defaultTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}
	now := time.Now()

	var created *model.Reservation
	err := s.inv.WithTx(ctx, func(tx *gorm.DB) error {
		rec, err := s.inv.GetOrCreateForUpdateTx(tx, req.ProductID)
		if err != nil {
			return err
		}

		// Settle this product's expired holds first so a stale reservation
		// can never block a new one, even before the sweep runs.
		expired, err := s.reservations.DeleteExpiredForProductTx(tx, req.ProductID, now)
		if err != nil {
			return err
		}
		freed := 0
		for _, e := range expired {
			freed += e.Quantity
		}

		reserved := rec.ReservedQuantity - freed
		if reserved < 0 {
			reserved = 0
		}
		available := rec.Quantity - reserved
		if req.Quantity > available {
			return fmt.Errorf("%w: product %s has %d available, requested %d",
				model.ErrInsufficientStock, req.ProductID, available, req.Quantity)
		}

		res := &model.Reservation{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			OrderID:   req.OrderID,
			CartID:    req.CartID,
			Reason:    req.Reason,
			ExpiresAt: now.Add(ttl),
		}
		if err := s.reservations.CreateTx(tx, res); err != nil {
			return err
		}

		if err := s.inv.AddReservedTx(tx, req.ProductID, req.Quantity-freed); err != nil {
			return err
		}

		created = res
		return nil
	})
	if err != nil {
		if repository.IsRetryableTxError(err) {
			return nil, fmt.Errorf("%w: %v", model.ErrConcurrencyConflict, err)
		}
		return nil, err
	}
	return created, nil
}

// Get returns a reservation, treating expired rows as gone even when the
// sweep has not physically removed them yet.
func (s *reservationService) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Live(time.Now()) {
		return nil, fmt.Errorf("%w: reservation %s expired", model.ErrNotFound, id)
	}
	return res, nil
}

func (s *reservationService) Release(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.release(ctx, res, reason)
}

func (s *reservationService) ReleaseByOrder(ctx context.Context, orderID uuid.UUID, reason string) (bool, error) {
	res, err := s.reservations.FindByOrderID(ctx, orderID)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.release(ctx, res, reason)
}

// release deletes the row and settles the cached counter. Idempotent: the
// expired path is left to the sweep, and RowsAffected guards the race where a
// concurrent caller already deleted the row.
func (s *reservationService) release(ctx context.Context, res *model.Reservation, reason string) (bool, error) {
	if !res.Live(time.Now()) {
		return false, nil
	}

	released := false
	err := s.inv.WithTx(ctx, func(tx *gorm.DB) error {
		// Lock order: inventory row first, matching Reserve and Consume.
		if _, err := s.inv.GetOrCreateForUpdateTx(tx, res.ProductID); err != nil {
			return err
		}
		ok, err := s.reservations.DeleteTx(tx, res.ID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.inv.AddReservedTx(tx, res.ProductID, -res.Quantity); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if released {
		log.Info().
			Str("reservation_id", res.ID.String()).
			Str("product_id", res.ProductID.String()).
			Int("quantity", res.Quantity).
			Str("reason", reason).
			Msg("reservation released")
	}
	return released, nil
}

func (s *reservationService) Consume(ctx context.Context, id uuid.UUID, createdBy string) (*model.InventoryRecord, error) {
	res, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.consume(ctx, res, createdBy)
}

func (s *reservationService) ConsumeByOrder(ctx context.Context, orderID uuid.UUID, createdBy string) (*model.InventoryRecord, error) {
	res, err := s.reservations.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.consume(ctx, res, createdBy)
}

// consume converts the hold into a committed sale: outbound movement plus
// quantity decrement plus hold deletion, all in one transaction.
func (s *reservationService) consume(ctx context.Context, res *model.Reservation, createdBy string) (*model.InventoryRecord, error) {
	if !res.Live(time.Now()) {
		return nil, fmt.Errorf("%w: reservation %s expired", model.ErrNotFound, res.ID)
	}

	refType := "reservation"
	refID := res.ID
	if res.OrderID != nil {
		refType = "order"
		refID = *res.OrderID
	}

	var rec *model.InventoryRecord
	err := s.inv.WithTx(ctx, func(tx *gorm.DB) error {
		// Settle the hold first so the sale adjustment sees the freed
		// reserved_quantity; everything rolls back together on error.
		ok, err := s.reservations.DeleteTx(tx, res.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: reservation %s already released", model.ErrNotFound, res.ID)
		}
		if err := s.inv.AddReservedTx(tx, res.ProductID, -res.Quantity); err != nil {
			return err
		}

		rec, err = s.adjuster.AdjustTx(tx, AdjustmentRequest{
			ProductID:     res.ProductID,
			Type:          model.MovementSale,
			Quantity:      res.Quantity,
			Reason:        res.Reason,
			ReferenceType: &refType,
			ReferenceID:   &refID,
			CreatedBy:     createdBy,
		})
		return err
	})
	if err != nil {
		if repository.IsRetryableTxError(err) {
			return nil, fmt.Errorf("%w: %v", model.ErrConcurrencyConflict, err)
		}
		return nil, err
	}
	return rec, nil
}

// ListByProduct returns a product's live holds, newest first. Expired rows
// awaiting the sweep are excluded.
func (s *reservationService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Reservation, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product id is required", model.ErrValidation)
	}
	return s.reservations.ListLiveByProduct(ctx, productID, time.Now())
}

// SweepExpired removes reservations whose expiry was already in the past at
// selection time. Each row is settled in its own transaction with deletion as
// the only-once signal, so concurrent sweeps never double-release a hold.
func (s *reservationService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now()
	expired, err := s.reservations.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, res := range expired {
		swept := false
		err := s.inv.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.inv.GetOrCreateForUpdateTx(tx, res.ProductID); err != nil {
				return err
			}
			ok, err := s.reservations.DeleteIfExpiredTx(tx, res.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := s.inv.AddReservedTx(tx, res.ProductID, -res.Quantity); err != nil {
				return err
			}
			swept = true
			return nil
		})
		if err != nil {
			log.Warn().Err(err).
				Str("reservation_id", res.ID.String()).
				Msg("sweep: failed to release expired reservation")
			continue
		}
		if swept {
			released++
		}
	}
	return released, nil
}
