package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order; every statement is idempotent. Ids are uuid
// strings and money columns hold decimal strings so the same DDL runs on
// SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS sales (
            id TEXT PRIMARY KEY,
            sale_number TEXT NOT NULL UNIQUE,
            sale_date TIMESTAMP NOT NULL,
            customer_id TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            customer_phone TEXT NOT NULL,
            branch_id TEXT NOT NULL,
            branch_name TEXT NOT NULL,
            branch_code TEXT NOT NULL,
            total_amount TEXT NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP,
            cancelled_at TIMESTAMP,
            cancelled_by TEXT
        )`,
	`CREATE TABLE IF NOT EXISTS sale_items (
            id TEXT PRIMARY KEY,
            sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            product_id TEXT NOT NULL,
            product_name TEXT NOT NULL,
            product_code TEXT NOT NULL,
            product_description TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price TEXT NOT NULL,
            discount_percentage TEXT NOT NULL,
            discount_amount TEXT NOT NULL,
            total_item_amount TEXT NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP,
            cancelled_at TIMESTAMP,
            cancelled_by TEXT
        )`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_branch ON sales (branch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_sale_date ON sales (sale_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales (status)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items (sale_id, position)`,
}

// Run creates the database schema required by the sales service.
func Run(ctx context.Context, db *sqlx.DB) error {
	for idx, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", idx+1, err)
		}
	}
	return nil
}
