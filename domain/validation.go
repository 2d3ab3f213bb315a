package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountTolerance is the largest difference accepted between a stored amount
// and the amount recomputed from its operands.
var AmountTolerance = decimal.New(1, -2)

// Field limits shared by command and entity validation.
const (
	MaxSaleNumberLen  = 50
	MaxNameLen        = 100
	MaxEmailLen       = 100
	MaxPhoneLen       = 20
	MaxBranchCodeLen  = 20
	MaxProductCodeLen = 50
	MaxDescriptionLen = 500
)

// RequireText records a violation when value is blank or longer than max.
func RequireText(v *Violations, field, label, value string, max int) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, label+" is required")
		return
	}
	MaxText(v, field, label, value, max)
}

func MaxText(v *Violations, field, label, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		v.Add(field, fmt.Sprintf("%s cannot exceed %d characters", label, max))
	}
}

func RequireID(v *Violations, field, label string, id uuid.UUID) {
	if id == uuid.Nil {
		v.Add(field, label+" is required")
	}
}

// RequireEmail checks presence, length and address syntax.
func RequireEmail(v *Violations, field, label, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, label+" is required")
		return
	}
	if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
		v.Add(field, label+" must be a valid email address")
	}
	MaxText(v, field, label, value, MaxEmailLen)
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(AmountTolerance)
}

// ValidateSaleItem checks the stored fields of an item, including the derived
// discount and total amounts.
func ValidateSaleItem(item *SaleItem) error {
	var v Violations
	collectItem(&v, item)
	return v.Err()
}

func collectItem(v *Violations, item *SaleItem) {
	RequireID(v, "saleId", "Sale ID", item.SaleID)
	RequireID(v, "productId", "Product ID", item.Product.ID)
	RequireText(v, "productName", "Product name", item.Product.Name, MaxNameLen)
	RequireText(v, "productCode", "Product code", item.Product.Code, MaxProductCodeLen)
	MaxText(v, "productDescription", "Product description", item.Product.Description, MaxDescriptionLen)

	if item.Quantity <= 0 {
		v.Add("quantity", "Quantity must be greater than zero")
	} else if item.Quantity > MaxItemQuantity {
		v.Add("quantity", fmt.Sprintf("Quantity cannot exceed %d", MaxItemQuantity))
	}
	if item.UnitPrice.IsNegative() {
		v.Add("unitPrice", "Unit price cannot be negative")
	}
	if item.DiscountPercentage.IsNegative() || item.DiscountPercentage.GreaterThan(hundred) {
		v.Add("discountPercentage", "Discount percentage must be between 0 and 100")
	} else if item.Quantity > 0 && item.Quantity <= MaxItemQuantity && !item.DiscountPercentage.Equal(TierFor(item.Quantity)) {
		v.Add("discountPercentage", "Discount percentage must match the quantity tier")
	}
	if item.DiscountAmount.IsNegative() {
		v.Add("discountAmount", "Discount amount cannot be negative")
	}
	if item.TotalItemAmount.IsNegative() {
		v.Add("totalItemAmount", "Total item amount cannot be negative")
	}

	gross := item.GrossAmount()
	expectedDiscount := gross.Mul(item.DiscountPercentage).Div(hundred)
	if !withinTolerance(item.DiscountAmount, expectedDiscount) {
		v.Add("discountAmount", "Discount amount must equal unit price * quantity * discount percentage / 100")
	}
	if !withinTolerance(item.TotalItemAmount, gross.Sub(item.DiscountAmount)) {
		v.Add("totalItemAmount", "Total item amount must equal unit price * quantity - discount amount")
	}
}

// ValidateSale checks the aggregate and every item before it is persisted.
func ValidateSale(s *Sale) error {
	var v Violations

	RequireText(&v, "saleNumber", "Sale number", s.SaleNumber, MaxSaleNumberLen)
	if s.SaleDate.IsZero() {
		v.Add("saleDate", "Sale date is required")
	} else if s.SaleDate.After(now()) {
		v.Add("saleDate", "Sale date cannot be in the future")
	}
	RequireID(&v, "customerId", "Customer ID", s.Customer.ID)
	RequireText(&v, "customerName", "Customer name", s.Customer.Name, MaxNameLen)
	RequireEmail(&v, "customerEmail", "Customer email", s.Customer.Email)
	RequireText(&v, "customerPhone", "Customer phone", s.Customer.Phone, MaxPhoneLen)
	RequireID(&v, "branchId", "Branch ID", s.Branch.ID)
	RequireText(&v, "branchName", "Branch name", s.Branch.Name, MaxNameLen)
	RequireText(&v, "branchCode", "Branch code", s.Branch.Code, MaxBranchCodeLen)

	if s.TotalAmount.IsNegative() {
		v.Add("totalAmount", "Total amount cannot be negative")
	}
	if len(s.Items) == 0 {
		v.Add("items", "Sale must have at least one item")
	}

	expected := decimal.Zero
	for idx, item := range s.Items {
		var iv Violations
		collectItem(&iv, item)
		if item.SaleID != uuid.Nil && item.SaleID != s.ID {
			iv.Add("saleId", "Sale item belongs to a different sale")
		}
		v.Merge(fmt.Sprintf("items[%d]", idx), iv.Err())
		if item.IsActive() {
			expected = expected.Add(item.TotalItemAmount)
		}
	}
	if !withinTolerance(s.TotalAmount, expected) {
		v.Add("totalAmount", "Total amount must equal the sum of active item totals")
	}
	return v.Err()
}
