package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// amountPlaces is the number of decimal places money amounts are rounded to.
const amountPlaces = 2

var hundred = decimal.NewFromInt(100)

// now is the clock used for entity timestamps.
var now = func() time.Time { return time.Now().UTC() }

// Product is the catalog reference copied onto a sale item. It is not checked
// against any catalog.
type Product struct {
	ID          uuid.UUID `db:"product_id" json:"productId"`
	Name        string    `db:"product_name" json:"productName"`
	Code        string    `db:"product_code" json:"productCode"`
	Description string    `db:"product_description" json:"productDescription"`
}

// SaleItem is one product line of a sale.
type SaleItem struct {
	ID     uuid.UUID `db:"id" json:"id"`
	SaleID uuid.UUID `db:"sale_id" json:"saleId"`
	Product

	Quantity           int             `db:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unitPrice"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	TotalItemAmount    decimal.Decimal `db:"total_item_amount" json:"totalItemAmount"`
	Status             Status          `db:"status" json:"status"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy *uuid.UUID `db:"cancelled_by" json:"cancelledBy,omitempty"`
}

// NewSaleItem builds an Active item with its totals already computed.
func NewSaleItem(product Product, quantity int, unitPrice decimal.Decimal) (*SaleItem, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	if err := checkUnitPrice(unitPrice); err != nil {
		return nil, err
	}
	item := &SaleItem{
		ID:        uuid.New(),
		Product:   product,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Status:    StatusActive,
		CreatedAt: now(),
	}
	item.CalculateTotals()
	return item, nil
}

func checkQuantity(q int) error {
	if q <= 0 || q > MaxItemQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrInvalidArgument, MaxItemQuantity, q)
	}
	return nil
}

func checkUnitPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return fmt.Errorf("%w: unit price cannot be negative", ErrInvalidArgument)
	}
	return nil
}

func (i *SaleItem) IsActive() bool { return i.Status == StatusActive }

// GrossAmount is unit price times quantity before discount.
func (i *SaleItem) GrossAmount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CalculateTotals recomputes discount percentage, discount amount and total
// from the current quantity and unit price.
func (i *SaleItem) CalculateTotals() {
	gross := i.GrossAmount()
	i.DiscountPercentage = TierFor(i.Quantity)
	i.DiscountAmount = gross.Mul(i.DiscountPercentage).Div(hundred).Round(amountPlaces)
	i.TotalItemAmount = gross.Sub(i.DiscountAmount)
	i.touch()
}

func (i *SaleItem) UpdateQuantity(q int) error {
	if err := checkQuantity(q); err != nil {
		return err
	}
	i.Quantity = q
	i.CalculateTotals()
	return nil
}

func (i *SaleItem) UpdateUnitPrice(p decimal.Decimal) error {
	if err := checkUnitPrice(p); err != nil {
		return err
	}
	i.UnitPrice = p
	i.CalculateTotals()
	return nil
}

// Cancel marks the item Cancelled. Calling it again overwrites the
// cancellation metadata; Sale.Cancel only reaches Active items.
func (i *SaleItem) Cancel(actor uuid.UUID) {
	at := now()
	by := actor
	i.Status = StatusCancelled
	i.CancelledAt = &at
	i.CancelledBy = &by
	i.UpdatedAt = &at
}

func (i *SaleItem) touch() {
	t := now()
	i.UpdatedAt = &t
}

// clone returns a copy that shares no pointers with i.
func (i *SaleItem) clone() SaleItem {
	c := *i
	c.UpdatedAt = copyTime(i.UpdatedAt)
	c.CancelledAt = copyTime(i.CancelledAt)
	if i.CancelledBy != nil {
		by := *i.CancelledBy
		c.CancelledBy = &by
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
