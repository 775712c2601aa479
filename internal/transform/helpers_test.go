package transform

import (
	"testing"

	"dotaconstants/internal/feed"

	json "github.com/goccy/go-json"
)

func decode(t *testing.T, body string) *feed.Table {
	t.Helper()
	v, err := feed.Decode([]byte(body), "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	tbl, ok := v.(*feed.Table)
	if !ok {
		t.Fatalf("Decode() = %T, want *feed.Table", v)
	}
	return tbl
}

func decodeList(t *testing.T, body string) []any {
	t.Helper()
	v, err := feed.Decode([]byte(body), "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	list, ok := v.([]any)
	if !ok {
		t.Fatalf("Decode() = %T, want []any", v)
	}
	return list
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(b)
}
