package format

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"zero", 0, "0"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"tiny", 0.001, "1.00e-3"},
		{"tiny negative", -0.0042, "-4.20e-3"},
		{"very tiny", 1.5e-12, "1.50e-12"},
		{"just below cent", 0.00999, "9.99e-3"},
		{"cent", 0.01, "0.0100"},
		{"half", 0.5, "0.5000"},
		{"negative fraction", -0.25, "-0.2500"},
		{"one", 1, "1.00"},
		{"integer", 42, "42.00"},
		{"negative small", -3.14159, "-3.14"},
		{"just below hundred", 99.994, "99.99"},
		{"hundred", 100, "100.00"},
		{"grouped", 12345.678, "12,345.68"},
		{"millions", 1234567.891, "1,234,567.89"},
		{"negative grouped", -2500.5, "-2,500.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.in))
		})
	}
}

func TestNumberScientificShape(t *testing.T) {
	re := regexp.MustCompile(`^-?\d\.\d{2}e-\d+$`)
	for _, x := range []float64{0.001, 0.0099, 0.000123, -0.005} {
		assert.Regexp(t, re, Number(x), "value %g", x)
	}
}

func TestNumberGroupedAlwaysTwoDecimals(t *testing.T) {
	re := regexp.MustCompile(`^-?\d{1,3}(,\d{3})*\.\d{2}$`)
	for _, x := range []float64{100, 999.999, 1000, 10000.1, 123456789} {
		assert.Regexp(t, re, Number(x), "value %g", x)
	}
}

func TestNumberRoundsHalfAwayFromZeroInEveryTier(t *testing.T) {
	assert.Equal(t, "1.01", Number(1.005))
	assert.Equal(t, "100.01", Number(100.005))
	assert.Equal(t, "-100.01", Number(-100.005))
	assert.Equal(t, "1,234.57", Number(1234.565))
	assert.Equal(t, "1,000.00", Number(999.999))
}

func TestNumberNonFinite(t *testing.T) {
	assert.Equal(t, "NaN", Number(math.NaN()))
	assert.Equal(t, "∞", Number(math.Inf(1)))
	assert.Equal(t, "-∞", Number(math.Inf(-1)))
}

func TestExponential(t *testing.T) {
	assert.Equal(t, "1.00e+0", Exponential(1, 2))
	assert.Equal(t, "1.23e+5", Exponential(123456, 2))
	assert.Equal(t, "5.0e-7", Exponential(5e-7, 1))
}
