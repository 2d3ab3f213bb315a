package events

import (
	"context"

	"go.uber.org/zap"

	"salesengine/m/domain"
)

// RegisterLogHandlers subscribes one structured log handler per event kind.
func RegisterLogHandlers(d *Dispatcher, logger *zap.Logger) {
	d.Subscribe(logSaleCreated(logger), domain.SaleCreated)
	d.Subscribe(logSaleModified(logger), domain.SaleModified)
	d.Subscribe(logSaleCancelled(logger), domain.SaleCancelled)
	d.Subscribe(logItemCancelled(logger), domain.ItemCancelled)
}

func saleFields(s *domain.Sale) []zap.Field {
	return []zap.Field{
		zap.String("sale_id", s.ID.String()),
		zap.String("sale_number", s.SaleNumber),
		zap.String("customer", s.Customer.Name),
		zap.String("branch", s.Branch.Name),
		zap.String("total_amount", s.TotalAmount.StringFixed(2)),
	}
}

func logSaleCreated(logger *zap.Logger) Handler {
	return func(_ context.Context, ev domain.Event) error {
		fields := append(saleFields(ev.Sale),
			zap.Time("sale_date", ev.Sale.SaleDate),
			zap.Int("items", len(ev.Sale.Items)))
		logger.Info("SaleCreated event published", fields...)
		return nil
	}
}

func logSaleModified(logger *zap.Logger) Handler {
	return func(_ context.Context, ev domain.Event) error {
		fields := append(saleFields(ev.Sale),
			zap.String("status", ev.Sale.Status.String()),
			zap.Int("active_items", ev.Sale.TotalActiveItemCount()))
		if ev.Sale.UpdatedAt != nil {
			fields = append(fields, zap.Time("updated_at", *ev.Sale.UpdatedAt))
		}
		logger.Info("SaleModified event published", fields...)
		return nil
	}
}

func logSaleCancelled(logger *zap.Logger) Handler {
	return func(_ context.Context, ev domain.Event) error {
		fields := saleFields(ev.Sale)
		if ev.Sale.CancelledAt != nil {
			fields = append(fields, zap.Time("cancelled_at", *ev.Sale.CancelledAt))
		}
		if ev.Sale.CancelledBy != nil {
			fields = append(fields, zap.String("cancelled_by", ev.Sale.CancelledBy.String()))
		}
		logger.Info("SaleCancelled event published", fields...)
		return nil
	}
}

func logItemCancelled(logger *zap.Logger) Handler {
	return func(_ context.Context, ev domain.Event) error {
		fields := []zap.Field{
			zap.String("sale_id", ev.Sale.ID.String()),
			zap.String("sale_number", ev.Sale.SaleNumber),
		}
		if item := ev.Item; item != nil {
			fields = append(fields,
				zap.String("item_id", item.ID.String()),
				zap.String("product", item.Product.Name),
				zap.Int("quantity", item.Quantity),
				zap.String("unit_price", item.UnitPrice.StringFixed(2)),
				zap.String("total_item_amount", item.TotalItemAmount.StringFixed(2)))
			if item.CancelledBy != nil {
				fields = append(fields, zap.String("cancelled_by", item.CancelledBy.String()))
			}
		}
		logger.Info("ItemCancelled event published", fields...)
		return nil
	}
}
