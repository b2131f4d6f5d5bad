package infra

import (
	"fmt"

	"maaztelecom/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the Postgres store through GORM's pgx-backed driver,
// migrates the catalog and sale tables, then applies idempotent patches
// AutoMigrate cannot express.
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

// RunMigrations creates or updates the schema. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Product{}, &model.Sale{}, &model.SaleLineItem{}); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs DDL that must be safe to re-run.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"retry scan index", `
CREATE INDEX IF NOT EXISTS idx_sales_retry
    ON sales (updated_at)
    WHERE invoice_status <> 'uploaded' OR notification_status IN ('pending', 'failed')`},
		{"line position uniqueness", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_sale_line_items_position
    ON sale_line_items (sale_id, position)`},
		{"non-negative discount", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sales_discount_non_negative') THEN
    ALTER TABLE sales ADD CONSTRAINT chk_sales_discount_non_negative CHECK (discount >= 0);
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
