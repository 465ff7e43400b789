// Package money holds the currency arithmetic rules. Every monetary value
// the engine stores or returns is rounded to 2 decimal places with
// half-up semantics; intermediate arithmetic keeps full precision.
package money

import "github.com/shopspring/decimal"

// Round rounds a computed currency value to 2 decimal places, half away
// from zero. Applied as the last step before a monetary figure is stored
// or returned.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Line returns quantity * unitPrice at full precision.
func Line(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
