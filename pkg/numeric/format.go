package numeric

import (
	"math"
	"strconv"
	"strings"
)

// Format renders f the way Number.prototype.toString does: shortest
// round-trip digits, exponent notation below 1e-6 and from 1e21 upwards,
// and the NaN / Infinity tokens.
func Format(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return formatExponent(f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatExponent drops the zero padding Go puts on exponents (1e-07 -> 1e-7).
func formatExponent(f float64) string {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	i := strings.IndexByte(s, 'e')
	mantissa, exp := s[:i], s[i+1:]
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}
