package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SaleFilter narrows a paginated listing. Nil fields do not filter.
type SaleFilter struct {
	CustomerID *uuid.UUID
	BranchID   *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Status     *Status
}

// SaleRepository persists sale aggregates. Every returned sale has its items
// loaded. Lookups of a missing sale fail with ErrNotFound.
type SaleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	GetByNumber(ctx context.Context, number string) (*Sale, error)
	Add(ctx context.Context, sale *Sale) (*Sale, error)
	Update(ctx context.Context, sale *Sale) (*Sale, error)
	Delete(ctx context.Context, sale *Sale) (bool, error)
	Paginate(ctx context.Context, page, size int, filter SaleFilter) ([]*Sale, int, error)
}

// UserRepository stores service operators.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}
