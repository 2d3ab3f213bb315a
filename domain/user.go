package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// User is an operator allowed to call the sales API. The authenticated user id
// is recorded as the actor of cancellations.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func ValidRole(role string) bool {
	return role == RoleManager || role == RoleCashier
}
