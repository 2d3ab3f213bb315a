package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"salesengine/m/domain"
)

const (
	// MaxPageSize caps the page size of a listing.
	MaxPageSize = 100
)

var clock = func() time.Time { return time.Now().UTC() }

func validateSaleFields(v *domain.Violations, f SaleFields) {
	domain.RequireText(v, "saleNumber", "Sale number", f.SaleNumber, domain.MaxSaleNumberLen)
	if f.SaleDate.IsZero() {
		v.Add("saleDate", "Sale date is required")
	} else if f.SaleDate.After(clock()) {
		v.Add("saleDate", "Sale date cannot be in the future")
	}
	domain.RequireID(v, "customerId", "Customer ID", f.CustomerID)
	domain.RequireText(v, "customerName", "Customer name", f.CustomerName, domain.MaxNameLen)
	domain.RequireEmail(v, "customerEmail", "Customer email", f.CustomerEmail)
	domain.RequireText(v, "customerPhone", "Customer phone", f.CustomerPhone, domain.MaxPhoneLen)
	domain.RequireID(v, "branchId", "Branch ID", f.BranchID)
	domain.RequireText(v, "branchName", "Branch name", f.BranchName, domain.MaxNameLen)
	domain.RequireText(v, "branchCode", "Branch code", f.BranchCode, domain.MaxBranchCodeLen)
}

func validateItemFields(v *domain.Violations, prefix string, f ItemFields) {
	field := func(name string) string { return prefix + "." + name }

	domain.RequireID(v, field("productId"), "Product ID", f.ProductID)
	domain.RequireText(v, field("productName"), "Product name", f.ProductName, domain.MaxNameLen)
	domain.RequireText(v, field("productCode"), "Product code", f.ProductCode, domain.MaxProductCodeLen)
	domain.MaxText(v, field("productDescription"), "Product description", f.ProductDescription, domain.MaxDescriptionLen)
	if f.Quantity <= 0 {
		v.Add(field("quantity"), "Quantity must be greater than zero")
	} else if f.Quantity > domain.MaxItemQuantity {
		v.Add(field("quantity"), fmt.Sprintf("Quantity cannot exceed %d", domain.MaxItemQuantity))
	}
	if !f.UnitPrice.IsPositive() {
		v.Add(field("unitPrice"), "Unit price must be greater than zero")
	}
}

// ValidateCreate returns every rule the command breaks.
func ValidateCreate(cmd CreateCommand) error {
	var v domain.Violations
	validateSaleFields(&v, cmd.SaleFields)
	if len(cmd.Items) == 0 {
		v.Add("items", "At least one sale item is required")
	}
	for idx, item := range cmd.Items {
		validateItemFields(&v, fmt.Sprintf("items[%d]", idx), item)
	}
	return v.Err()
}

func ValidateEdit(cmd EditCommand) error {
	var v domain.Violations
	domain.RequireID(&v, "id", "Sale ID", cmd.ID)
	domain.RequireID(&v, "actor", "Actor", cmd.Actor)
	validateSaleFields(&v, cmd.SaleFields)
	if len(cmd.Items) == 0 {
		v.Add("items", "At least one sale item is required")
	}
	seen := make(map[uuid.UUID]bool, len(cmd.Items))
	for idx, item := range cmd.Items {
		prefix := fmt.Sprintf("items[%d]", idx)
		validateItemFields(&v, prefix, item.ItemFields)
		if item.ID == nil {
			if item.Status.IsCancelled() {
				v.Add(prefix+".status", "New items must be Active")
			}
			continue
		}
		if *item.ID == uuid.Nil {
			v.Add(prefix+".id", "Item ID cannot be empty")
		} else if seen[*item.ID] {
			v.Add(prefix+".id", "Item is listed more than once")
		}
		seen[*item.ID] = true
	}
	return v.Err()
}

func validateID(field, label string, id uuid.UUID) error {
	var v domain.Violations
	domain.RequireID(&v, field, label, id)
	return v.Err()
}

func ValidateCancel(cmd CancelCommand) error {
	var v domain.Violations
	domain.RequireID(&v, "id", "Sale ID", cmd.ID)
	domain.RequireID(&v, "actor", "Actor", cmd.Actor)
	return v.Err()
}

func ValidateCancelItem(cmd CancelItemCommand) error {
	var v domain.Violations
	domain.RequireID(&v, "saleId", "Sale ID", cmd.SaleID)
	domain.RequireID(&v, "itemId", "Item ID", cmd.ItemID)
	domain.RequireID(&v, "actor", "Actor", cmd.Actor)
	return v.Err()
}

// ValidateList checks paging bounds, the date range and the status name.
func ValidateList(q ListQuery) error {
	var v domain.Violations
	if q.Page < 1 {
		v.Add("page", "Page number must be greater than 0")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		v.Add("pageSize", fmt.Sprintf("Page size must be between 1 and %d", MaxPageSize))
	}
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		v.Add("startDate", "Start date must be less than or equal to end date")
	}
	if q.Status != "" {
		if _, err := domain.ParseStatus(q.Status); err != nil {
			v.Add("status", "Status must be a valid sale status (Active, Cancelled)")
		}
	}
	return v.Err()
}
