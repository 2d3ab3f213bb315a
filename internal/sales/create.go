package sales

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"salesengine/m/domain"
)

// Create registers a new sale. The sale number must not be in use.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*domain.Sale, error) {
	if err := ValidateCreate(cmd); err != nil {
		return nil, err
	}

	taken, err := s.numberTaken(ctx, cmd.SaleNumber, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: sale with number %s already exists", domain.ErrConflict, cmd.SaleNumber)
	}

	sale := domain.NewSale(cmd.SaleNumber, cmd.SaleDate, cmd.customer(), cmd.branch())
	for _, in := range cmd.Items {
		item, err := domain.NewSaleItem(in.product(), in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, err
		}
		if err := sale.AddItem(item); err != nil {
			return nil, err
		}
	}
	sale.CalculateTotalAmount()
	if err := domain.ValidateSale(sale); err != nil {
		return nil, err
	}

	created, err := s.repo.Add(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("save sale %s: %w", sale.SaleNumber, err)
	}
	s.logger.Info("sale created",
		zap.String("sale_id", created.ID.String()),
		zap.String("sale_number", created.SaleNumber),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)))

	if err := s.publish(ctx, []domain.Event{domain.NewSaleEvent(domain.SaleCreated, created)}); err != nil {
		return nil, err
	}
	return created.Snapshot(), nil
}
