package sales

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"salesengine/m/domain"
)

// Get returns the sale with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	if err := validateID("id", "Sale ID", id); err != nil {
		return nil, err
	}
	sale, err := s.loadSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return sale.Snapshot(), nil
}

// List returns one page of sales matching the query filters.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if err := ValidateList(q); err != nil {
		return nil, err
	}

	filter := domain.SaleFilter{
		CustomerID: q.CustomerID,
		BranchID:   q.BranchID,
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
	}
	if q.Status != "" {
		status, err := domain.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	page, total, err := s.repo.Paginate(ctx, q.Page, q.PageSize, filter)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return &ListResult{
		Sales:       page,
		CurrentPage: q.Page,
		PageSize:    q.PageSize,
		TotalCount:  total,
		TotalPages:  PageCount(total, q.PageSize),
	}, nil
}

// Delete removes a sale together with its items.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	if err := validateID("id", "Sale ID", id); err != nil {
		return nil, err
	}
	sale, err := s.loadSale(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Delete(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("delete sale %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	s.logger.Info("sale deleted",
		zap.String("sale_id", sale.ID.String()),
		zap.String("sale_number", sale.SaleNumber))
	return &DeleteResult{Success: true}, nil
}
