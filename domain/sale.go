package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is the customer snapshot captured on a sale.
type Customer struct {
	ID    uuid.UUID `db:"customer_id" json:"customerId"`
	Name  string    `db:"customer_name" json:"customerName"`
	Email string    `db:"customer_email" json:"customerEmail"`
	Phone string    `db:"customer_phone" json:"customerPhone"`
}

// Branch is the store snapshot captured on a sale.
type Branch struct {
	ID   uuid.UUID `db:"branch_id" json:"branchId"`
	Name string    `db:"branch_name" json:"branchName"`
	Code string    `db:"branch_code" json:"branchCode"`
}

// Sale is the aggregate root. Its total always equals the sum of the totals of
// its Active items, and once Cancelled it accepts no item mutation.
type Sale struct {
	ID         uuid.UUID `db:"id" json:"id"`
	SaleNumber string    `db:"sale_number" json:"saleNumber"`
	SaleDate   time.Time `db:"sale_date" json:"saleDate"`
	Customer
	Branch

	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status      Status          `db:"status" json:"status"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy *uuid.UUID `db:"cancelled_by" json:"cancelledBy,omitempty"`

	Items []*SaleItem `db:"-" json:"items"`
}

// NewSale starts an Active sale with no items. Callers add at least one item
// before persisting it.
func NewSale(number string, date time.Time, customer Customer, branch Branch) *Sale {
	return &Sale{
		ID:          uuid.New(),
		SaleNumber:  number,
		SaleDate:    date.UTC(),
		Customer:    customer,
		Branch:      branch,
		Status:      StatusActive,
		TotalAmount: decimal.Zero,
		CreatedAt:   now(),
	}
}

func (s *Sale) IsActive() bool { return s.Status == StatusActive }

func (s *Sale) ensureActive(action string) error {
	if s.Status == StatusCancelled {
		return fmt.Errorf("%w: cannot %s a cancelled sale", ErrInvalidState, action)
	}
	return nil
}

// FindItem returns the item with the given id, or nil.
func (s *Sale) FindItem(id uuid.UUID) *SaleItem {
	for _, item := range s.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (s *Sale) AddItem(item *SaleItem) error {
	if err := s.ensureActive("add items to"); err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: item is required", ErrInvalidArgument)
	}
	item.SaleID = s.ID
	s.Items = append(s.Items, item)
	s.CalculateTotalAmount()
	s.touch()
	return nil
}

// RemoveItem drops the item; an unknown id is a no-op.
func (s *Sale) RemoveItem(itemID uuid.UUID) error {
	if err := s.ensureActive("remove items from"); err != nil {
		return err
	}
	for idx, item := range s.Items {
		if item.ID == itemID {
			s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
			s.CalculateTotalAmount()
			s.touch()
			return nil
		}
	}
	return nil
}

// CancelItem cancels one item; an unknown id is a no-op.
func (s *Sale) CancelItem(itemID uuid.UUID, actor uuid.UUID) error {
	if err := s.ensureActive("cancel items in"); err != nil {
		return err
	}
	item := s.FindItem(itemID)
	if item == nil {
		return nil
	}
	item.Cancel(actor)
	s.CalculateTotalAmount()
	s.touch()
	return nil
}

// Cancel cancels the sale and every item that is still Active. Items that were
// already cancelled keep their original cancellation data.
func (s *Sale) Cancel(actor uuid.UUID) error {
	if s.Status == StatusCancelled {
		return fmt.Errorf("%w: sale %s is already cancelled", ErrInvalidState, s.SaleNumber)
	}
	at := now()
	by := actor
	s.Status = StatusCancelled
	s.CancelledAt = &at
	s.CancelledBy = &by
	s.UpdatedAt = &at
	for _, item := range s.Items {
		if item.IsActive() {
			item.Cancel(actor)
		}
	}
	s.CalculateTotalAmount()
	return nil
}

// CalculateTotalAmount sets TotalAmount from the Active items and returns it.
func (s *Sale) CalculateTotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		if item.IsActive() {
			total = total.Add(item.TotalItemAmount)
		}
	}
	s.TotalAmount = total
	return total
}

func (s *Sale) TotalActiveItemCount() int {
	n := 0
	for _, item := range s.Items {
		if item.IsActive() {
			n++
		}
	}
	return n
}

func (s *Sale) TotalDiscountAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		if item.IsActive() {
			total = total.Add(item.DiscountAmount)
		}
	}
	return total
}

func (s *Sale) UpdateCustomerInfo(c Customer) {
	s.Customer = c
	s.touch()
}

func (s *Sale) UpdateBranchInfo(b Branch) {
	s.Branch = b
	s.touch()
}

func (s *Sale) touch() {
	t := now()
	s.UpdatedAt = &t
}

// Snapshot returns a deep copy safe to hand to event handlers or caches.
func (s *Sale) Snapshot() *Sale {
	c := *s
	c.UpdatedAt = copyTime(s.UpdatedAt)
	c.CancelledAt = copyTime(s.CancelledAt)
	if s.CancelledBy != nil {
		by := *s.CancelledBy
		c.CancelledBy = &by
	}
	c.Items = make([]*SaleItem, len(s.Items))
	for idx, item := range s.Items {
		ic := item.clone()
		c.Items[idx] = &ic
	}
	return &c
}
