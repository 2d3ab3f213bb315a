package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salesengine/m/domain"
	"salesengine/m/internal/sales"
)

// Column order of the seed file. Each row is one item; consecutive rows with
// the same sale number belong to the same sale.
const (
	colSaleNumber = iota
	colSaleDate
	colCustomerID
	colCustomerName
	colCustomerEmail
	colCustomerPhone
	colBranchID
	colBranchName
	colBranchCode
	colProductID
	colProductName
	colProductCode
	colProductDescription
	colQuantity
	colUnitPrice
	columnCount
)

// Creator is the part of the sales service the loader needs.
type Creator interface {
	Create(ctx context.Context, cmd sales.CreateCommand) (*domain.Sale, error)
}

// LoadSales reads sales from a CSV file and creates them through svc. Sale
// numbers that already exist are skipped, so loading the same file twice is
// harmless. It returns the number of sales created.
func LoadSales(ctx context.Context, svc Creator, csvPath string, logger *zap.Logger) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open seed file %s: %w", csvPath, err)
	}
	defer file.Close()
	return loadSales(ctx, svc, file, logger)
}

func loadSales(ctx context.Context, svc Creator, r io.Reader, logger *zap.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = columnCount
	reader.TrimLeadingSpace = true
	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("read seed header: %w", err)
	}

	var (
		order  []string
		groups = make(map[string]*sales.CreateCommand)
		line   = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logger.Warn("skipping unreadable seed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		number := strings.TrimSpace(record[colSaleNumber])
		cmd, ok := groups[number]
		if !ok {
			fields, err := parseSaleFields(record)
			if err != nil {
				logger.Warn("skipping seed row", zap.Int("line", line), zap.Error(err))
				continue
			}
			cmd = &sales.CreateCommand{SaleFields: fields}
			groups[number] = cmd
			order = append(order, number)
		}
		item, err := parseItemFields(record)
		if err != nil {
			logger.Warn("skipping seed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		cmd.Items = append(cmd.Items, item)
	}

	created := 0
	for _, number := range order {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		_, err := svc.Create(ctx, *groups[number])
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrConflict):
			logger.Debug("seed sale already exists", zap.String("sale_number", number))
		default:
			logger.Warn("unable to seed sale", zap.String("sale_number", number), zap.Error(err))
		}
	}
	logger.Info("seeded sales", zap.Int("created", created), zap.Int("read", len(order)))
	return created, nil
}

func parseSaleFields(rec []string) (sales.SaleFields, error) {
	date, err := parseDate(rec[colSaleDate])
	if err != nil {
		return sales.SaleFields{}, err
	}
	customerID, err := uuid.Parse(strings.TrimSpace(rec[colCustomerID]))
	if err != nil {
		return sales.SaleFields{}, fmt.Errorf("customer_id: %w", err)
	}
	branchID, err := uuid.Parse(strings.TrimSpace(rec[colBranchID]))
	if err != nil {
		return sales.SaleFields{}, fmt.Errorf("branch_id: %w", err)
	}
	return sales.SaleFields{
		SaleNumber:    strings.TrimSpace(rec[colSaleNumber]),
		SaleDate:      date,
		CustomerID:    customerID,
		CustomerName:  strings.TrimSpace(rec[colCustomerName]),
		CustomerEmail: strings.TrimSpace(rec[colCustomerEmail]),
		CustomerPhone: strings.TrimSpace(rec[colCustomerPhone]),
		BranchID:      branchID,
		BranchName:    strings.TrimSpace(rec[colBranchName]),
		BranchCode:    strings.TrimSpace(rec[colBranchCode]),
	}, nil
}

func parseItemFields(rec []string) (sales.ItemFields, error) {
	productID, err := uuid.Parse(strings.TrimSpace(rec[colProductID]))
	if err != nil {
		return sales.ItemFields{}, fmt.Errorf("product_id: %w", err)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(rec[colQuantity]))
	if err != nil {
		return sales.ItemFields{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(rec[colUnitPrice]))
	if err != nil {
		return sales.ItemFields{}, fmt.Errorf("unit_price: %w", err)
	}
	return sales.ItemFields{
		ProductID:          productID,
		ProductName:        strings.TrimSpace(rec[colProductName]),
		ProductCode:        strings.TrimSpace(rec[colProductCode]),
		ProductDescription: strings.TrimSpace(rec[colProductDescription]),
		Quantity:           qty,
		UnitPrice:          price,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("sale_date %q: expected RFC3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
