package feed

import (
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Table is an insertion-ordered mapping decoded from a feed.
// Values are string, float64, bool, nil, []any or *Table.
type Table struct {
	*orderedmap.OrderedMap[string, any]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{orderedmap.New[string, any]()}
}

func (t *Table) empty() bool {
	return t == nil || t.OrderedMap == nil
}

// Len returns the number of keys; nil tables are empty.
func (t *Table) Len() int {
	if t.empty() {
		return 0
	}
	return t.OrderedMap.Len()
}

// Lookup returns the raw value stored under key.
func (t *Table) Lookup(key string) (any, bool) {
	if t.empty() {
		return nil, false
	}
	return t.OrderedMap.Get(key)
}

// Has reports whether key is present, even with a null value.
func (t *Table) Has(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Str returns the scalar under key as text, or "" when absent or nested.
func (t *Table) Str(key string) string {
	s, _ := t.StrOK(key)
	return s
}

// StrOK is Str with a presence flag. Nested tables and arrays are not scalars.
func (t *Table) StrOK(key string) (string, bool) {
	v, ok := t.Lookup(key)
	if !ok {
		return "", false
	}
	return Text(v)
}

// Sub returns the nested table under key, or nil.
func (t *Table) Sub(key string) *Table {
	v, _ := t.Lookup(key)
	sub, _ := v.(*Table)
	return sub
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	if t.empty() {
		return nil
	}
	keys := make([]string, 0, t.OrderedMap.Len())
	for pair := t.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every pair in insertion order.
func (t *Table) Each(fn func(key string, value any)) {
	if t.empty() {
		return
	}
	for pair := t.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Put sets key, keeping the original position of an existing key.
func (t *Table) Put(key string, value any) {
	t.OrderedMap.Set(key, value)
}

// LowerKeys returns a copy with lower-cased top-level keys. When two keys
// fold to the same name the later value wins.
func (t *Table) LowerKeys() *Table {
	out := NewTable()
	t.Each(func(key string, value any) {
		out.Put(strings.ToLower(key), value)
	})
	return out
}

// Strings flattens the scalar entries of t into a plain lookup map.
func (t *Table) Strings() map[string]string {
	out := make(map[string]string, t.Len())
	t.Each(func(key string, value any) {
		if s, ok := Text(value); ok {
			out[key] = s
		}
	})
	return out
}

// Text renders a scalar value the way the game feeds spell it. The second
// result is false for nil, tables and arrays.
func Text(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return FormatNumber(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// FormatNumber prints f without exponent or trailing zeros.
func FormatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy follows the feeds' loose flag encoding: "1", true and non-zero
// numbers are set; "", "0", false, nil and NaN are not. The string "0"
// is unset here, which is stricter than a non-empty check.
func Truthy(v any) bool {
	switch x := v.(type) {
	case string:
		return x != "" && x != "0"
	case float64:
		return x != 0 && !math.IsNaN(x)
	case bool:
		return x
	case nil:
		return false
	default:
		return true
	}
}
