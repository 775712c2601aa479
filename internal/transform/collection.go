package transform

import (
	"math"
	"sort"
	"strconv"

	"dotaconstants/internal/feed"

	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Collection is an output document keyed by entity name or id.
type Collection[V any] struct {
	*orderedmap.OrderedMap[string, V]
}

// NewCollection returns an empty collection.
func NewCollection[V any]() *Collection[V] {
	return &Collection[V]{orderedmap.New[string, V]()}
}

// Put sets key; an existing key keeps its position.
func (c *Collection[V]) Put(key string, v V) {
	c.Set(key, v)
}

// Names returns the keys in output order.
func (c *Collection[V]) Names() []string {
	names := make([]string, 0, c.Len())
	for pair := c.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// indexKey reports whether key is a canonical array index ("0", "17",
// not "017" or "-1"), returning its value.
func indexKey(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// idOrder reorders a collection keyed by numeric ids the way consumers of
// the documents enumerate object keys: index-like keys first in ascending
// order, then the remaining keys in insertion order.
func idOrder[V any](c *Collection[V]) *Collection[V] {
	type entry struct {
		key string
		n   uint64
		v   V
	}
	var numeric, named []entry
	for pair := c.Oldest(); pair != nil; pair = pair.Next() {
		if n, ok := indexKey(pair.Key); ok {
			numeric = append(numeric, entry{pair.Key, n, pair.Value})
		} else {
			named = append(named, entry{key: pair.Key, v: pair.Value})
		}
	}
	sort.SliceStable(numeric, func(i, j int) bool { return numeric[i].n < numeric[j].n })

	out := NewCollection[V]()
	for _, e := range numeric {
		out.Put(e.key, e.v)
	}
	for _, e := range named {
		out.Put(e.key, e.v)
	}
	return out
}

// Num is a numeric stat. NaN (missing or malformed upstream) encodes as
// null.
type Num float64

// MarshalJSON implements json.Marshaler.
func (n Num) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(feed.FormatNumber(f)), nil
}

// Flag is an integer that encodes as false when zero.
type Flag int

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f == 0 {
		return []byte("false"), nil
	}
	return []byte(strconv.Itoa(int(f))), nil
}

// Labels is a list of display labels. One label encodes as a string.
type Labels []string

// MarshalJSON implements json.Marshaler.
func (l Labels) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// entityKeys returns the entity blocks of a scripts table, skipping scalar
// entries such as Version.
func entityKeys(t *feed.Table) []string {
	var keys []string
	t.Each(func(key string, v any) {
		if _, ok := v.(*feed.Table); ok {
			keys = append(keys, key)
		}
	})
	return keys
}
