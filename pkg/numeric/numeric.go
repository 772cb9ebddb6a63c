// Package numeric converts query-string text to float64 and back using the
// same coercion rules a JavaScript runtime applies with Number() and
// Number.prototype.toString().
package numeric

import (
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrNotANumber is returned when text does not coerce to a number.
var ErrNotANumber = errors.New("not a number")

var decimalLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*(?:[eE][+-]?[0-9]+)?|\.[0-9]+(?:[eE][+-]?[0-9]+)?)$`)

// Parse coerces s to a float64. Surrounding whitespace is ignored and blank
// text is zero. On failure the value is NaN and err is ErrNotANumber, so
// callers that ignore err still get not-a-number propagation.
func Parse(s string) (float64, error) {
	s = strings.TrimFunc(s, isSpace)
	if s == "" {
		return 0, nil
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return parseRadix(s[2:], 16)
		case 'o', 'O':
			return parseRadix(s[2:], 8)
		case 'b', 'B':
			return parseRadix(s[2:], 2)
		}
	}

	if !decimalLiteral.MatchString(s) {
		return math.NaN(), ErrNotANumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out of range literals saturate to +-Inf or 0
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, nil
		}
		return math.NaN(), ErrNotANumber
	}
	return f, nil
}

// Sum adds a and b. NaN in either operand yields NaN.
func Sum(a, b float64) float64 {
	return a + b
}

func parseRadix(digits string, base int) (float64, error) {
	if digits == "" || digits[0] == '+' || digits[0] == '-' || strings.ContainsRune(digits, '_') {
		return math.NaN(), ErrNotANumber
	}
	i, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return math.NaN(), ErrNotANumber
	}
	f, _ := new(big.Float).SetInt(i).Float64()
	return f, nil
}

func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}
