package service

import (
	"context"
	"sync"
	"time"

	"stockledger/internal/model"
	"stockledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing store for the stub repositories.
// WithTx serializes the atomic unit under a mutex and restores a snapshot on
// error, mirroring the commit/rollback semantics the services rely on.
type memStore struct {
	mu           sync.Mutex
	inventory    map[uuid.UUID]*model.InventoryRecord // keyed by ProductID
	reservations map[uuid.UUID]*model.Reservation
	movements    []model.StockMovement
}

func newMemStore() *memStore {
	return &memStore{
		inventory:    make(map[uuid.UUID]*model.InventoryRecord),
		reservations: make(map[uuid.UUID]*model.Reservation),
	}
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range s.inventory {
		rec := *v
		cp.inventory[k] = &rec
	}
	for k, v := range s.reservations {
		res := *v
		cp.reservations[k] = &res
	}
	cp.movements = append([]model.StockMovement(nil), s.movements...)
	return cp
}

func (s *memStore) restore(snap *memStore) {
	s.inventory = snap.inventory
	s.reservations = snap.reservations
	s.movements = snap.movements
}

// seed installs an inventory record outside any transaction.
func (s *memStore) seed(rec model.InventoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.inventory[rec.ProductID] = &rec
}

func (s *memStore) record(productID uuid.UUID) model.InventoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.inventory[productID]
	if !ok {
		return model.InventoryRecord{}
	}
	return *rec
}

func (s *memStore) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

func (s *memStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

// ── Inventory stub ────────────────────────────────────────────────────────────

type stubInventoryRepo struct{ store *memStore }

func (r *stubInventoryRepo) Get(ctx context.Context, productID uuid.UUID) (*model.InventoryRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.inventory[productID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *stubInventoryRepo) List(ctx context.Context, filter repository.InventoryFilter) ([]model.InventoryRecord, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.InventoryRecord
	for _, rec := range r.store.inventory {
		if filter.ProductID != nil && rec.ProductID != *filter.ProductID {
			continue
		}
		if filter.LowStock && rec.Quantity > rec.LowStockThreshold {
			continue
		}
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

func (r *stubInventoryRepo) GetOrCreateForUpdateTx(tx *gorm.DB, productID uuid.UUID) (*model.InventoryRecord, error) {
	rec, ok := r.store.inventory[productID]
	if !ok {
		rec = &model.InventoryRecord{ID: uuid.New(), ProductID: productID, LowStockThreshold: 5}
		r.store.inventory[productID] = rec
	}
	cp := *rec
	return &cp, nil
}

func (r *stubInventoryRepo) SaveTx(tx *gorm.DB, rec *model.InventoryRecord) error {
	cp := *rec
	r.store.inventory[rec.ProductID] = &cp
	return nil
}

func (r *stubInventoryRepo) AddReservedTx(tx *gorm.DB, productID uuid.UUID, delta int) error {
	if rec, ok := r.store.inventory[productID]; ok {
		rec.ReservedQuantity += delta
	}
	return nil
}

func (r *stubInventoryRepo) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

func (r *stubInventoryRepo) DB() *gorm.DB { return nil }

// ── Movement stub ─────────────────────────────────────────────────────────────

type stubMovementRepo struct{ store *memStore }

func (r *stubMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	if !m.Consistent() {
		return model.ErrValidation
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.store.movements = append(r.store.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.store.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.BatchID != nil && (m.BatchID == nil || *m.BatchID != *filter.BatchID) {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovementRepo) Summarize(ctx context.Context, productID uuid.UUID, windowDays int) (*repository.MovementSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := &repository.MovementSummary{ProductID: productID, WindowDays: windowDays}
	for _, m := range r.store.movements {
		if m.ProductID != productID {
			continue
		}
		sum.MovementCount++
		if dir, _ := m.Type.Direction(); dir == model.DirectionIn {
			sum.InboundTotal += int64(m.Quantity)
		} else {
			sum.OutboundTotal += int64(m.Quantity)
		}
	}
	sum.NetChange = sum.InboundTotal - sum.OutboundTotal
	return sum, nil
}

// ── Reservation stub ──────────────────────────────────────────────────────────

type stubReservationRepo struct{ store *memStore }

func (r *stubReservationRepo) CreateTx(tx *gorm.DB, res *model.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = time.Now()
	cp := *res
	r.store.reservations[res.ID] = &cp
	return nil
}

func (r *stubReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *stubReservationRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, res := range r.store.reservations {
		if res.OrderID != nil && *res.OrderID == orderID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *stubReservationRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	if _, ok := r.store.reservations[id]; !ok {
		return false, nil
	}
	delete(r.store.reservations, id)
	return true, nil
}

func (r *stubReservationRepo) DeleteIfExpiredTx(tx *gorm.DB, id uuid.UUID, now time.Time) (bool, error) {
	res, ok := r.store.reservations[id]
	if !ok || res.Live(now) {
		return false, nil
	}
	delete(r.store.reservations, id)
	return true, nil
}

func (r *stubReservationRepo) DeleteExpiredForProductTx(tx *gorm.DB, productID uuid.UUID, now time.Time) ([]model.Reservation, error) {
	var removed []model.Reservation
	for id, res := range r.store.reservations {
		if res.ProductID == productID && !res.Live(now) {
			removed = append(removed, *res)
			delete(r.store.reservations, id)
		}
	}
	return removed, nil
}

func (r *stubReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Reservation
	for _, res := range r.store.reservations {
		if !res.Live(now) {
			out = append(out, *res)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *stubReservationRepo) ListLiveByProduct(ctx context.Context, productID uuid.UUID, now time.Time) ([]model.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Reservation
	for _, res := range r.store.reservations {
		if res.ProductID == productID && res.Live(now) {
			out = append(out, *res)
		}
	}
	return out, nil
}

// newTestServices wires the full service stack over one shared store.
func newTestServices() (*memStore, AdjustmentService, ReservationService, BatchService, AlertService) {
	store := newMemStore()
	inv := &stubInventoryRepo{store: store}
	movements := &stubMovementRepo{store: store}
	reservations := &stubReservationRepo{store: store}

	adjuster := NewAdjustmentService(inv, movements, nil, 3)
	reserver := NewReservationService(inv, reservations, adjuster, 15)
	batcher := NewBatchService(adjuster)
	alerter := NewAlertService(inv)
	return store, adjuster, reserver, batcher, alerter
}
