package domain

import (
	"context"
	"time"
)

// EventKind names one of the closed set of sale events.
type EventKind string

const (
	SaleCreated   EventKind = "SaleCreated"
	SaleModified  EventKind = "SaleModified"
	SaleCancelled EventKind = "SaleCancelled"
	ItemCancelled EventKind = "ItemCancelled"
)

// Event carries snapshots of the sale, and of the item for ItemCancelled,
// taken at the moment the event was raised.
type Event struct {
	Kind       EventKind `json:"kind"`
	Sale       *Sale     `json:"sale"`
	Item       *SaleItem `json:"item,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewSaleEvent(kind EventKind, sale *Sale) Event {
	return Event{Kind: kind, Sale: sale.Snapshot(), OccurredAt: now()}
}

func NewItemCancelledEvent(sale *Sale, item *SaleItem) Event {
	ic := item.clone()
	return Event{Kind: ItemCancelled, Sale: sale.Snapshot(), Item: &ic, OccurredAt: now()}
}

// EventPublisher delivers events. Publish returns only after every handler ran.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
