package domain

import "github.com/shopspring/decimal"

const (
	// MaxItemQuantity is the largest quantity of one product a sale item may carry.
	MaxItemQuantity = 20
)

var (
	tierNone   = decimal.Zero
	tierTen    = decimal.NewFromInt(10)
	tierTwenty = decimal.NewFromInt(20)
)

// TierFor returns the discount percentage for a line quantity: below 4 units
// no discount, 4 to 9 units 10%, 10 units and above 20%.
// Quantities above MaxItemQuantity must be rejected before calling.
func TierFor(quantity int) decimal.Decimal {
	switch {
	case quantity < 4:
		return tierNone
	case quantity < 10:
		return tierTen
	default:
		return tierTwenty
	}
}
