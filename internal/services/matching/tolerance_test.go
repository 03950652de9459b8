package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToleranceAllowance(t *testing.T) {
	tol := DefaultTolerance()

	assert.Equal(t, int64(1000), tol.Allowance(100000))
	assert.Equal(t, int64(1210), tol.Allowance(121000))
	// ceil: 1% of 150 minor units is 1.5
	assert.Equal(t, int64(2), tol.Allowance(150))
	assert.Equal(t, int64(0), tol.Allowance(0))
	// over-paid invoices use the magnitude of the remaining amount
	assert.Equal(t, int64(10), tol.Allowance(-1000))
}

func TestToleranceWithin(t *testing.T) {
	tol := DefaultTolerance()

	tests := []struct {
		name      string
		amount    int64
		remaining int64
		want      bool
	}{
		{"exact", 100000, 100000, true},
		{"under by allowance", 99000, 100000, true},
		{"over by allowance", 101000, 100000, true},
		{"close", 99500, 100000, true},
		{"one past allowance", 98999, 100000, false},
		{"far", 80000, 100000, false},
		{"settled invoice", 100, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tol.Within(tt.amount, tt.remaining))
		})
	}
}

func TestToleranceCustomPercent(t *testing.T) {
	tol := Tolerance{Percent: decimal.RequireFromString("0.05")}

	assert.True(t, tol.Within(95000, 100000))
	assert.False(t, tol.Within(94999, 100000))
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "995.00", FormatMinor(99500))
	assert.Equal(t, "1000.00", FormatMinor(100000))
	assert.Equal(t, "0.05", FormatMinor(5))
	assert.Equal(t, "-12.34", FormatMinor(-1234))
}
