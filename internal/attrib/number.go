package attrib

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"dotaconstants/internal/feed"
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*([eE][+-]?\d+)?|\.\d+([eE][+-]?\d+)?)`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseLeadingFloat reads the numeric prefix of s ("10 20 30" reads 10).
func ParseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN(), false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN(), false
	}
	return f, true
}

// ParseLeadingInt reads the integer prefix of s ("600 700" reads 600,
// "0.5" reads 0).
func ParseLeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Number converts a whole string to a number: blank is 0, anything that
// is not a complete number is NaN.
func Number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsAny(s, "nN_") {
		return math.NaN()
	}
	return f
}

// NormalizeNumeric renders a template value. A value with a non-zero
// numeric prefix prints as that number, integral values without a
// fraction; everything else is returned unchanged.
func NormalizeNumeric(s string) string {
	f, ok := ParseLeadingFloat(s)
	if !ok || f == 0 {
		return s
	}
	n := math.Floor(f)
	if Number(s) == n {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return feed.FormatNumber(f)
}
