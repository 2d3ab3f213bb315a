package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salesengine/m/domain"
)

// SaleFields are the scalar fields shared by create and edit commands.
type SaleFields struct {
	SaleNumber    string    `json:"saleNumber"`
	SaleDate      time.Time `json:"saleDate"`
	CustomerID    uuid.UUID `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone"`
	BranchID      uuid.UUID `json:"branchId"`
	BranchName    string    `json:"branchName"`
	BranchCode    string    `json:"branchCode"`
}

func (f SaleFields) customer() domain.Customer {
	return domain.Customer{ID: f.CustomerID, Name: f.CustomerName, Email: f.CustomerEmail, Phone: f.CustomerPhone}
}

func (f SaleFields) branch() domain.Branch {
	return domain.Branch{ID: f.BranchID, Name: f.BranchName, Code: f.BranchCode}
}

// ItemFields describe one product line of a command.
type ItemFields struct {
	ProductID          uuid.UUID       `json:"productId"`
	ProductName        string          `json:"productName"`
	ProductCode        string          `json:"productCode"`
	ProductDescription string          `json:"productDescription"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
}

func (f ItemFields) product() domain.Product {
	return domain.Product{ID: f.ProductID, Name: f.ProductName, Code: f.ProductCode, Description: f.ProductDescription}
}

type CreateCommand struct {
	SaleFields
	Items []ItemFields `json:"items"`
}

// EditItem updates the item with ID in place, or appends a new item when ID
// is nil.
type EditItem struct {
	ID *uuid.UUID `json:"id,omitempty"`
	ItemFields
	Status domain.Status `json:"status"`
}

// EditCommand replaces the scalar fields of sale ID and applies Items. Items
// of the sale that are not listed are left as they are. Actor is recorded on
// any cancellation the edit causes.
type EditCommand struct {
	ID    uuid.UUID `json:"-"`
	Actor uuid.UUID `json:"-"`
	SaleFields
	Status domain.Status `json:"status"`
	Items  []EditItem    `json:"items"`
}

type CancelCommand struct {
	ID    uuid.UUID
	Actor uuid.UUID
}

type CancelItemCommand struct {
	SaleID uuid.UUID
	ItemID uuid.UUID
	Actor  uuid.UUID
}

// ListQuery selects one page of sales. Status is matched by name.
type ListQuery struct {
	Page       int
	PageSize   int
	CustomerID *uuid.UUID
	BranchID   *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Status     string
}

type DeleteResult struct {
	Success bool `json:"success"`
}

type ListResult struct {
	Sales       []*domain.Sale `json:"sales"`
	CurrentPage int            `json:"currentPage"`
	PageSize    int            `json:"pageSize"`
	TotalCount  int            `json:"totalCount"`
	TotalPages  int            `json:"totalPages"`
}

// PageCount is the number of pages of size needed for total rows.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
