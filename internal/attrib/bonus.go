package attrib

import (
	"math"
	"strings"

	"dotaconstants/internal/feed"
)

// StripSigns removes the first +, -, x and % marker from a bonus string.
func StripSigns(bonus string) string {
	for _, marker := range []string{"+", "-", "x", "%"} {
		bonus = strings.Replace(bonus, marker, "", 1)
	}
	return bonus
}

// ApplyBonus computes the value an upgrade produces from a base value and
// a bonus descriptor such as "+15", "-10%", "x2" or "25".
//
// Without a base the magnitude is returned as is. A zero base yields the
// magnitude. Otherwise percent bonuses scale the base by 1 ± m/100, signed
// bonuses add or subtract m, x multiplies and bare numbers add m. Integral
// results print without a fraction.
func ApplyBonus(base string, hasBase bool, bonus string) string {
	magnitude := StripSigns(bonus)
	if !hasBase {
		return magnitude
	}

	b, ok := ParseLeadingFloat(base)
	m, mok := ParseLeadingFloat(magnitude)
	if ok && b == 0 {
		if mok && m == math.Floor(m) && Number(magnitude) == m {
			return feed.FormatNumber(m)
		}
		return magnitude
	}
	if !ok || !mok {
		return magnitude
	}

	marker := strings.TrimSpace(bonus)
	var result float64
	switch {
	case strings.Contains(marker, "%"):
		if strings.HasPrefix(marker, "-") {
			result = b * (1 - m/100)
		} else {
			result = b * (1 + m/100)
		}
	case strings.HasPrefix(marker, "+"):
		result = b + m
	case strings.HasPrefix(marker, "-"):
		result = b - m
	case strings.HasPrefix(marker, "x"):
		result = b * m
	default:
		result = b + m
	}
	return formatResult(result)
}

func formatResult(f float64) string {
	// percent math leaves float noise such as 89.99999999999999
	if r := math.Round(f); math.Abs(f-r) < 1e-9 {
		f = r
	}
	return feed.FormatNumber(f)
}
