// Package format holds the display rules shared by every numeric cell of the
// opportunity table.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var grouped = message.NewPrinter(language.English)

// Number renders x for display:
//
//	x == 0          "0"
//	|x| < 0.01      scientific, 2 fractional digits ("1.00e-3")
//	|x| < 1         fixed, 4 fractional digits
//	|x| < 100       fixed, 2 fractional digits
//	otherwise       thousands-grouped, exactly 2 fractional digits
func Number(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "∞"
	case math.IsInf(x, -1):
		return "-∞"
	case x == 0:
		return "0"
	}

	abs := math.Abs(x)
	switch {
	case abs < 0.01:
		return Exponential(x, 2)
	case abs < 1:
		return Fixed(x, 4)
	case abs < 100:
		return Fixed(x, 2)
	default:
		// Round in decimal first so every tier rounds half away from zero on
		// the shortest decimal form of x.
		rounded := decimal.NewFromFloat(x).Round(2).InexactFloat64()
		return grouped.Sprintf("%.2f", rounded)
	}
}

// Fixed renders x with exactly places fractional digits.
func Fixed(x float64, places int32) string {
	return decimal.NewFromFloat(x).StringFixed(places)
}

// Exponential renders x in scientific notation with the given number of
// fractional digits. The exponent carries no zero padding, so 0.001 becomes
// "1.00e-3" rather than "1.00e-03".
func Exponential(x float64, places int) string {
	s := strconv.FormatFloat(x, 'e', places, 64)
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	mantissa, sign, exp := s[:i], s[i+1], strings.TrimLeft(s[i+2:], "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + string(sign) + exp
}
