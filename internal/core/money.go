// Package core holds the household budgeting domain: money, expense
// schedules, amortization, aggregation and settlement arithmetic.
//
// All calculations run on cents. Amortization may produce fractional
// cents (a yearly amount divided by 12 rarely lands on a whole cent);
// those fractions survive until the point of aggregation, where
// RoundCents settles them with currency semantics.
package core

import (
	"fmt"
	"math"
)

// RoundCents rounds fractional cents half-away-from-zero to a whole
// cent amount.
func RoundCents(cents float64) int64 {
	if cents >= 0 {
		return int64(math.Floor(cents + 0.5))
	}
	return int64(math.Ceil(cents - 0.5))
}

// Euros returns the euro value for display purposes. Calculations stay
// on cents to avoid floating-point drift.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount with two decimals, e.g. "60.00".
func (m Money) Format() string {
	return fmt.Sprintf("%.2f", m.Euros())
}
