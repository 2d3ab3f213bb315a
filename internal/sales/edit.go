package sales

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"salesengine/m/domain"
)

// Edit updates a sale and its items in place. Besides SaleModified it
// publishes SaleCancelled and ItemCancelled for every entity whose status
// became Cancelled during the edit.
func (s *Service) Edit(ctx context.Context, cmd EditCommand) (*domain.Sale, error) {
	if err := ValidateEdit(cmd); err != nil {
		return nil, err
	}

	sale, err := s.loadSale(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if sale.SaleNumber != cmd.SaleNumber {
		taken, err := s.numberTaken(ctx, cmd.SaleNumber, sale)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: sale with number %s already exists", domain.ErrConflict, cmd.SaleNumber)
		}
	}
	if sale.Status.IsCancelled() {
		return nil, fmt.Errorf("%w: sale %s is cancelled and cannot be edited", domain.ErrInvalidState, sale.SaleNumber)
	}

	before := captureStatus(sale)

	sale.SaleNumber = cmd.SaleNumber
	sale.SaleDate = cmd.SaleDate.UTC()
	sale.UpdateCustomerInfo(cmd.customer())
	sale.UpdateBranchInfo(cmd.branch())

	for _, in := range cmd.Items {
		if err := applyItem(sale, in, cmd); err != nil {
			return nil, err
		}
	}
	if cmd.Status.IsCancelled() {
		if err := sale.Cancel(cmd.Actor); err != nil {
			return nil, err
		}
	}
	sale.CalculateTotalAmount()
	if err := domain.ValidateSale(sale); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("save sale %s: %w", sale.SaleNumber, err)
	}
	s.logger.Info("sale modified",
		zap.String("sale_id", updated.ID.String()),
		zap.String("sale_number", updated.SaleNumber),
		zap.String("status", updated.Status.String()))

	if err := s.publish(ctx, before.events(updated)); err != nil {
		return nil, err
	}
	return updated.Snapshot(), nil
}

// applyItem updates an existing item or appends a new one.
func applyItem(sale *domain.Sale, in EditItem, cmd EditCommand) error {
	if in.ID == nil {
		item, err := domain.NewSaleItem(in.product(), in.Quantity, in.UnitPrice)
		if err != nil {
			return err
		}
		return sale.AddItem(item)
	}

	item := sale.FindItem(*in.ID)
	if item == nil {
		return fmt.Errorf("%w: sale item %s not found in sale %s", domain.ErrNotFound, *in.ID, cmd.ID)
	}
	if item.Status.IsCancelled() {
		if !in.Status.IsCancelled() {
			return fmt.Errorf("%w: sale item %s is cancelled and cannot be reactivated", domain.ErrInvalidState, item.ID)
		}
		if !sameLine(item, in.ItemFields) {
			return fmt.Errorf("%w: sale item %s is cancelled and cannot be changed", domain.ErrInvalidState, item.ID)
		}
		return nil
	}

	item.Product = in.product()
	if err := item.UpdateQuantity(in.Quantity); err != nil {
		return err
	}
	if err := item.UpdateUnitPrice(in.UnitPrice); err != nil {
		return err
	}
	if in.Status.IsCancelled() {
		return sale.CancelItem(item.ID, cmd.Actor)
	}
	return nil
}

func sameLine(item *domain.SaleItem, in ItemFields) bool {
	return item.Product == in.product() &&
		item.Quantity == in.Quantity &&
		item.UnitPrice.Equal(in.UnitPrice)
}
