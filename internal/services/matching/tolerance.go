package matching

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the relative amount drift accepted between a transaction and
// an invoice's remaining amount (rounding, bank fees).
type Tolerance struct {
	Percent decimal.Decimal
}

func DefaultTolerance() Tolerance {
	return Tolerance{Percent: decimal.NewFromFloat(0.01)}
}

// Allowance returns ceil(|remaining| * Percent) in minor units.
func (t Tolerance) Allowance(remaining int64) int64 {
	return decimal.NewFromInt(remaining).Abs().Mul(t.Percent).Ceil().IntPart()
}

// Within reports whether |amount - remaining| fits the allowance.
func (t Tolerance) Within(amount, remaining int64) bool {
	return absDiff(amount, remaining) <= t.Allowance(remaining)
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// FormatMinor renders a minor-unit amount with two decimals, e.g. 99500 -> "995.00".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
