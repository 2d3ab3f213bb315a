// Package sales holds the use cases that change or read sales. Each use case
// validates its command, works on the aggregate loaded through the
// repository, persists it and then publishes the events describing what
// changed.
package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"salesengine/m/domain"
)

// ErrPublishFailed marks a command whose changes were saved but whose events
// could not be delivered.
var ErrPublishFailed = errors.New("event publication failed")

// Service runs the sale use cases.
type Service struct {
	repo      domain.SaleRepository
	publisher domain.EventPublisher
	logger    *zap.Logger
}

// NewService constructs a Service. A nil logger discards log output.
func NewService(repo domain.SaleRepository, publisher domain.EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// publish delivers events in order and stops at the first failure.
func (s *Service) publish(ctx context.Context, events []domain.Event) error {
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Error("event publication failed",
				zap.String("event", string(ev.Kind)),
				zap.String("sale_id", ev.Sale.ID.String()),
				zap.Error(err))
			return fmt.Errorf("%w: %s: %w", ErrPublishFailed, ev.Kind, err)
		}
	}
	return nil
}

// loadSale fetches a sale, turning a missing row into a NotFound error that
// names the id.
func (s *Service) loadSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load sale %s: %w", id, err)
	}
	return sale, nil
}

// numberTaken reports whether number belongs to a sale other than except.
func (s *Service) numberTaken(ctx context.Context, number string, except *domain.Sale) (bool, error) {
	other, err := s.repo.GetByNumber(ctx, number)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up sale number %s: %w", number, err)
	}
	if except != nil && other.ID == except.ID {
		return false, nil
	}
	return true, nil
}

// statusChanges records the status of a sale and its items before a mutation
// so the events can be derived afterwards.
type statusChanges struct {
	sale  domain.Status
	items map[uuid.UUID]domain.Status
}

func captureStatus(sale *domain.Sale) statusChanges {
	sc := statusChanges{sale: sale.Status, items: make(map[uuid.UUID]domain.Status, len(sale.Items))}
	for _, item := range sale.Items {
		sc.items[item.ID] = item.Status
	}
	return sc
}

// events compares the captured statuses with the current ones. SaleModified
// always comes first, then SaleCancelled if the sale became cancelled, then
// one ItemCancelled per item that became cancelled, in item order.
func (sc statusChanges) events(sale *domain.Sale) []domain.Event {
	out := []domain.Event{domain.NewSaleEvent(domain.SaleModified, sale)}
	if !sc.sale.IsCancelled() && sale.Status.IsCancelled() {
		out = append(out, domain.NewSaleEvent(domain.SaleCancelled, sale))
	}
	for _, item := range sale.Items {
		before, existed := sc.items[item.ID]
		if existed && !before.IsCancelled() && item.Status.IsCancelled() {
			out = append(out, domain.NewItemCancelledEvent(sale, item))
		}
	}
	return out
}
