// Package pricing holds the storefront's money arithmetic: discounted unit prices, cart totals and
// the payment service charge. All amounts are decimals rounded half-up to two places.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	chargeRate      = decimal.RequireFromString("0.015")
	chargeThreshold = decimal.NewFromInt(2500)
	chargeFlatFee   = decimal.NewFromInt(100)
	chargeCap       = decimal.NewFromInt(2000)
)

// Line is the pricing view of one cart or order line.
type Line struct {
	Price    decimal.Decimal
	Discount decimal.Decimal
	Quantity int
}

// Round rounds an amount half-up to two decimal places.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// DiscountedPrice applies a percentage discount to a unit price.
// Discounts outside [0, 100] are clamped so the result always lies in [0, price].
func DiscountedPrice(price, discount decimal.Decimal) decimal.Decimal {
	switch {
	case discount.IsNegative():
		discount = decimal.Zero
	case discount.GreaterThan(hundred):
		discount = hundred
	}
	return Round(price.Sub(price.Mul(discount).Div(hundred)))
}

// Subtotal is the undiscounted sum of price*quantity.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// DiscountedTotal sums the discounted unit prices times quantities.
func DiscountedTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(DiscountedPrice(l.Price, l.Discount).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return Round(total)
}

// ServiceCharge is the gateway fee added on top of a checkout amount:
// 1.5% below 2500, otherwise 1.5% + 100 capped at 2000.
func ServiceCharge(amount decimal.Decimal) decimal.Decimal {
	charge := chargeRate.Mul(amount)
	if amount.LessThan(chargeThreshold) {
		return Round(charge)
	}
	charge = charge.Add(chargeFlatFee)
	if charge.GreaterThan(chargeCap) {
		charge = chargeCap
	}
	return Round(charge)
}

// MinorUnits converts an amount to the smallest currency unit (kobo, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
