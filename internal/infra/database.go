package infra

import (
	"fmt"

	"stockledger/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (partial indexes, check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies AutoMigrate plus the SQL-only schema patches.
// Also used by integration tests against a throwaway container DB.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.InventoryRecord{},
		&model.StockMovement{},
		&model.Reservation{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// fully handle on its own.  Each statement uses IF NOT EXISTS / existence-check
// semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// reserved_quantity can never go negative. quantity may — but only for
		// rows that allow backorders; everywhere else the engine enforces >= 0
		// and the constraint backstops it.
		{"check inventory_records non-negative quantities", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_records_nonneg') THEN
    ALTER TABLE inventory_records DROP CONSTRAINT chk_inventory_records_nonneg;
  END IF;
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_records_counters') THEN
    ALTER TABLE inventory_records
      ADD CONSTRAINT chk_inventory_records_counters
      CHECK (reserved_quantity >= 0 AND (quantity >= 0 OR allow_backorder));
  END IF;
END $$`},
		// Movements record a positive magnitude; direction lives in the type.
		{"check stock_movements positive quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_movements_positive') THEN
    ALTER TABLE stock_movements
      ADD CONSTRAINT chk_stock_movements_positive
      CHECK (quantity > 0);
  END IF;
END $$`},
		// Partial index for the expiry sweep query: only live rows with a deadline.
		{"partial index for reservation sweep", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_reservations_sweep') THEN
    CREATE INDEX idx_reservations_sweep
        ON reservations (expires_at)
        WHERE expires_at IS NOT NULL;
  END IF;
END $$`},
		// Reference lookups: "all movements for order X".
		{"index stock_movements reference", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movements_reference') THEN
    CREATE INDEX idx_movements_reference
        ON stock_movements (reference_type, reference_id)
        WHERE reference_id IS NOT NULL;
  END IF;
END $$`},
		// Batch audits: "all movements applied by batch Y".
		{"index stock_movements batch", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movements_batch') THEN
    CREATE INDEX idx_movements_batch
        ON stock_movements (batch_id)
        WHERE batch_id IS NOT NULL;
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("schema patch %q: %w", p.descr, err)
		}
	}
	return nil
}
