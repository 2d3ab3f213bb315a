// Package repository persists sales and users with sqlx.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"salesengine/m/domain"
)

const saleColumns = `id, sale_number, sale_date, customer_id, customer_name, customer_email,
        customer_phone, branch_id, branch_name, branch_code, total_amount, status,
        created_at, updated_at, cancelled_at, cancelled_by`

const itemColumns = `id, sale_id, product_id, product_name, product_code, product_description,
        quantity, unit_price, discount_percentage, discount_amount, total_item_amount,
        status, created_at, updated_at, cancelled_at, cancelled_by`

// itemRow adds the item's position within its sale.
type itemRow struct {
	*domain.SaleItem
	Position int `db:"position"`
}

// SaleRepository stores sale aggregates in the sales and sale_items tables.
type SaleRepository struct {
	db *sqlx.DB
}

func NewSaleRepository(db *sqlx.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *SaleRepository) GetByNumber(ctx context.Context, number string) (*domain.Sale, error) {
	return r.getOne(ctx, `sale_number = ?`, number)
}

func (r *SaleRepository) getOne(ctx context.Context, where string, arg any) (*domain.Sale, error) {
	var sale domain.Sale
	query := r.db.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE ` + where)
	if err := r.db.GetContext(ctx, &sale, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select sale: %w", err)
	}
	if err := r.loadItems(ctx, []*domain.Sale{&sale}); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Add inserts the sale and its items in one transaction.
func (r *SaleRepository) Add(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO sales (`+saleColumns+`) VALUES (
            :id, :sale_number, :sale_date, :customer_id, :customer_name, :customer_email,
            :customer_phone, :branch_id, :branch_name, :branch_code, :total_amount, :status,
            :created_at, :updated_at, :cancelled_at, :cancelled_by)`, sale)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sale with number %s already exists", domain.ErrConflict, sale.SaleNumber)
		}
		return nil, fmt.Errorf("insert sale: %w", err)
	}
	if err := insertItems(ctx, tx, sale); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sale.Snapshot(), nil
}

// Update rewrites the sale row and replaces its item rows.
func (r *SaleRepository) Update(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `UPDATE sales SET
            sale_number = :sale_number, sale_date = :sale_date,
            customer_id = :customer_id, customer_name = :customer_name,
            customer_email = :customer_email, customer_phone = :customer_phone,
            branch_id = :branch_id, branch_name = :branch_name, branch_code = :branch_code,
            total_amount = :total_amount, status = :status, updated_at = :updated_at,
            cancelled_at = :cancelled_at, cancelled_by = :cancelled_by
        WHERE id = :id`, sale)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sale with number %s already exists", domain.ErrConflict, sale.SaleNumber)
		}
		return nil, fmt.Errorf("update sale: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sale_items WHERE sale_id = ?`), sale.ID); err != nil {
		return nil, fmt.Errorf("clear sale items: %w", err)
	}
	if err := insertItems(ctx, tx, sale); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return sale.Snapshot(), nil
}

func insertItems(ctx context.Context, tx *sqlx.Tx, sale *domain.Sale) error {
	for idx, item := range sale.Items {
		item.SaleID = sale.ID
		_, err := tx.NamedExecContext(ctx, `INSERT INTO sale_items (`+itemColumns+`, position) VALUES (
                :id, :sale_id, :product_id, :product_name, :product_code, :product_description,
                :quantity, :unit_price, :discount_percentage, :discount_amount, :total_item_amount,
                :status, :created_at, :updated_at, :cancelled_at, :cancelled_by, :position)`,
			itemRow{SaleItem: item, Position: idx})
		if err != nil {
			return fmt.Errorf("insert sale item %s: %w", item.ID, err)
		}
	}
	return nil
}

// Delete removes the sale and its items. It reports false when no row matched.
func (r *SaleRepository) Delete(ctx context.Context, sale *domain.Sale) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sale_items WHERE sale_id = ?`), sale.ID); err != nil {
		return false, fmt.Errorf("delete sale items: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sales WHERE id = ?`), sale.ID)
	if err != nil {
		return false, fmt.Errorf("delete sale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// Paginate returns page (1-based) of the sales matching filter, newest sale
// date first, and the total number of matches.
func (r *SaleRepository) Paginate(ctx context.Context, page, size int, filter domain.SaleFilter) ([]*domain.Sale, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != nil {
		conds = append(conds, `customer_id = ?`)
		args = append(args, *filter.CustomerID)
	}
	if filter.BranchID != nil {
		conds = append(conds, `branch_id = ?`)
		args = append(args, *filter.BranchID)
	}
	if filter.StartDate != nil {
		conds = append(conds, `sale_date >= ?`)
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		conds = append(conds, `sale_date <= ?`)
		args = append(args, filter.EndDate.UTC())
	}
	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, *filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM sales`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}
	if total == 0 {
		return []*domain.Sale{}, 0, nil
	}

	sales := []*domain.Sale{}
	query := r.db.Rebind(`SELECT ` + saleColumns + ` FROM sales` + where +
		` ORDER BY sale_date DESC, sale_number ASC LIMIT ? OFFSET ?`)
	pageArgs := append(append([]any(nil), args...), size, (page-1)*size)
	if err := r.db.SelectContext(ctx, &sales, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("select sales: %w", err)
	}
	if err := r.loadItems(ctx, sales); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// loadItems fills Items of every sale with a single query.
func (r *SaleRepository) loadItems(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, len(sales))
	byID := make(map[uuid.UUID]*domain.Sale, len(sales))
	for idx, s := range sales {
		ids[idx] = s.ID.String()
		byID[s.ID] = s
		s.Items = []*domain.SaleItem{}
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM sale_items WHERE sale_id IN (?) ORDER BY sale_id, position`, ids)
	if err != nil {
		return fmt.Errorf("build item query: %w", err)
	}
	var items []*domain.SaleItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("select sale items: %w", err)
	}
	for _, item := range items {
		if s, ok := byID[item.SaleID]; ok {
			s.Items = append(s.Items, item)
		}
	}
	return nil
}
