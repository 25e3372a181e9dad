// Package tax computes line and cart money amounts. Everything here is a
// pure function of its inputs; rounding happens once at the edges so that
// per-line cent drift never accumulates across a large cart.
package tax

import (
	"fmt"
	"math"

	"kadaipos/engine/internal/domain"
	"kadaipos/engine/internal/store"
)

// Line holds the display-rounded money amounts for a single unit.
type Line struct {
	BasePrice float64
	TaxAmount float64
	LineTotal float64
}

// ComputeLine splits a unit price into base and tax. For tax-inclusive
// prices the base is backed out by division; for exclusive prices the tax
// is added on top. Outputs are rounded to 2 decimals.
func ComputeLine(price float64, taxPct float64, inclusive bool) (Line, error) {
	if taxPct < 0 {
		return Line{}, fmt.Errorf("%w: tax percentage must not be negative", store.ErrInvalidInput)
	}

	base, amount, total := splitUnit(price, taxPct, inclusive)
	return Line{
		BasePrice: Round2(base),
		TaxAmount: Round2(amount),
		LineTotal: Round2(total),
	}, nil
}

// Totals aggregates a snapshot item list into bill totals. Base and tax
// are summed at full precision and rounded once each at the end; the
// grand total is the sum of the two rounded figures, matching what a
// reader of the printed receipt would add up by hand.
func Totals(items []domain.BillItem) (subtotal float64, taxAmount float64, grandTotal float64, err error) {
	var base, amount float64
	for _, item := range items {
		if item.TaxPercentage < 0 {
			return 0, 0, 0, fmt.Errorf("%w: tax percentage must not be negative", store.ErrInvalidInput)
		}
		b, t, _ := splitUnit(item.Price, item.TaxPercentage, item.TaxInclusive)
		base += b * float64(item.Qty)
		amount += t * float64(item.Qty)
	}

	subtotal = Round2(base)
	taxAmount = Round2(amount)
	grandTotal = Round2(subtotal + taxAmount)
	return subtotal, taxAmount, grandTotal, nil
}

// RoundOff adjusts a total to the nearest whole rupee and reports the
// signed adjustment that was applied.
func RoundOff(total float64) (rounded float64, adjustment float64) {
	rounded = math.Round(total)
	adjustment = Round2(rounded - total)
	return rounded, adjustment
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func splitUnit(price float64, taxPct float64, inclusive bool) (base float64, amount float64, total float64) {
	if inclusive {
		base = price / (1 + taxPct/100)
		return base, price - base, price
	}
	amount = price * taxPct / 100
	return price, amount, price + amount
}
