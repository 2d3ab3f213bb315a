package sales

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"salesengine/m/domain"
)

// Cancel cancels a whole sale and, with it, every item that is still active.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*domain.Sale, error) {
	if err := ValidateCancel(cmd); err != nil {
		return nil, err
	}
	sale, err := s.loadSale(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	before := captureStatus(sale)
	if err := sale.Cancel(cmd.Actor); err != nil {
		return nil, err
	}
	return s.commitStatusChange(ctx, sale, before)
}

// CancelItem cancels one item of an active sale.
func (s *Service) CancelItem(ctx context.Context, cmd CancelItemCommand) (*domain.Sale, error) {
	if err := ValidateCancelItem(cmd); err != nil {
		return nil, err
	}
	sale, err := s.loadSale(ctx, cmd.SaleID)
	if err != nil {
		return nil, err
	}
	item := sale.FindItem(cmd.ItemID)
	if item == nil {
		return nil, fmt.Errorf("%w: sale item %s not found in sale %s", domain.ErrNotFound, cmd.ItemID, cmd.SaleID)
	}
	if item.Status.IsCancelled() {
		return nil, fmt.Errorf("%w: sale item %s is already cancelled", domain.ErrInvalidState, item.ID)
	}

	before := captureStatus(sale)
	if err := sale.CancelItem(cmd.ItemID, cmd.Actor); err != nil {
		return nil, err
	}
	return s.commitStatusChange(ctx, sale, before)
}

func (s *Service) commitStatusChange(ctx context.Context, sale *domain.Sale, before statusChanges) (*domain.Sale, error) {
	updated, err := s.repo.Update(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("save sale %s: %w", sale.SaleNumber, err)
	}
	s.logger.Info("sale status changed",
		zap.String("sale_id", updated.ID.String()),
		zap.String("sale_number", updated.SaleNumber),
		zap.String("status", updated.Status.String()),
		zap.Int("active_items", updated.TotalActiveItemCount()))

	if err := s.publish(ctx, before.events(updated)); err != nil {
		return nil, err
	}
	return updated.Snapshot(), nil
}
