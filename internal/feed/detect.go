package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const maxLoggedBody = 512

// Parse decodes a feed body. JSON is returned as decoded (objects as
// *Table, key order kept). Anything else is read as KeyValue text: the
// block under the root key is returned with its top-level keys
// lower-cased. A body that is neither degrades to an empty table.
func Parse(body []byte) any {
	return ParsePath(body, "")
}

// ParsePath is Parse restricted to a gjson path of a JSON body, for feeds
// wrapped in an envelope such as lang.Tokens.
func ParsePath(body []byte, path string) any {
	v, err := Decode(body, path)
	if err != nil {
		log.Printf("[Feed] unparseable body (%v): %s", err, snippet(body))
		return NewTable()
	}
	return v
}

// Decode is the error-returning form of ParsePath.
func Decode(body []byte, path string) (any, error) {
	body = bytes.TrimSpace(stripBOM(body))
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	if json.Valid(body) {
		if path == "" {
			return decodeJSON(body)
		}
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			return nil, fmt.Errorf("path %q not found", path)
		}
		return decodeJSON([]byte(res.Raw))
	}

	root, err := ParseKeyValue(body)
	if err != nil {
		return nil, fmt.Errorf("neither JSON nor KeyValue: %w", err)
	}
	first := root.Oldest()
	inner, ok := first.Value.(*Table)
	if !ok {
		return nil, fmt.Errorf("root key %q holds no block", first.Key)
	}
	if path != "" {
		log.Printf("[Feed] path %q ignored for KeyValue body", path)
	}
	return inner.LowerKeys(), nil
}

// decodeJSON walks a JSON value keeping object key order. Objects are
// split with an ordered map of raw members and decoded recursively.
func decodeJSON(raw []byte) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	switch raw[0] {
	case '{':
		members := orderedmap.New[string, json.RawMessage]()
		if err := members.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		t := NewTable()
		for pair := members.Oldest(); pair != nil; pair = pair.Next() {
			v, err := decodeJSON(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pair.Key, err)
			}
			t.Put(pair.Key, v)
		}
		return t, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := decodeJSON(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	default:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func snippet(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}

// AsTable returns v as a table, or an empty one when the feed decoded to
// something else.
func AsTable(v any) *Table {
	if t, ok := v.(*Table); ok && t != nil {
		return t
	}
	return NewTable()
}

// AsList returns v as an array; a table yields its values in order.
func AsList(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case *Table:
		out := make([]any, 0, x.Len())
		x.Each(func(_ string, value any) { out = append(out, value) })
		return out
	default:
		return nil
	}
}
