package attrib

import (
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// DefaultSeparator joins multi-level values for display.
const DefaultSeparator = " / "

var trailingZeros = regexp.MustCompile(`\.0+(\D|$)`)

// Values is a formatted value list. A single entry serializes as a plain
// string, anything else as an array.
type Values []string

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(v))
}

// Scalar reports whether v holds exactly one value.
func (v Values) Scalar() bool {
	return len(v) == 1
}

// String returns the joined display form.
func (v Values) String() string {
	return strings.Join(v, DefaultSeparator)
}

// FormatValues normalizes a per-level value list. Identical levels collapse
// to one, percent appends % to each level, levels are joined with sep (the
// default when empty) and .0 noise is stripped. More than one remaining
// level is split back into a list.
func FormatValues(values []string, percent bool, sep string) Values {
	if sep == "" {
		sep = DefaultSeparator
	}
	if len(values) == 0 {
		values = []string{""}
	}

	if allEqual(values) {
		values = values[:1]
	}

	parts := make([]string, len(values))
	for i, v := range values {
		if percent {
			v += "%"
		}
		parts[i] = v
	}

	joined := trailingZeros.ReplaceAllString(strings.Join(parts, sep), "$1")
	if len(parts) > 1 {
		return Values(strings.Split(joined, sep))
	}
	return Values{joined}
}

// FormatValueString is FormatValues for a space-delimited level string.
func FormatValueString(s string, percent bool, sep string) Values {
	return FormatValues(strings.Split(s, " "), percent, sep)
}

func allEqual(values []string) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
