package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"dotaconstants/internal/feed"
	"dotaconstants/internal/storage"
	"dotaconstants/internal/transform"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_FeedCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")
	s := openTestStore(t, path)

	const url = "https://example.com/items.json"
	if _, ok, err := s.LookupFeed(ctx, url); ok || err != nil {
		t.Fatalf("LookupFeed() on empty store = %v, %v", ok, err)
	}

	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	want := feed.CachedFeed{URL: url, ETag: `"abc"`, LastModified: "Wed, 01 May 2024 12:00:00 GMT", Body: []byte(`{"a":1}`), FetchedAt: fetched}
	if err := s.StoreFeed(ctx, want); err != nil {
		t.Fatalf("StoreFeed() error = %v", err)
	}

	got, ok, err := s.LookupFeed(ctx, url)
	if err != nil || !ok {
		t.Fatalf("LookupFeed() = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LookupFeed() = %+v, want %+v", got, want)
	}

	// A reopened store rebuilds its URL filter from the table.
	s.Close()
	reopened := openTestStore(t, path)
	if _, ok, err := reopened.LookupFeed(ctx, url); !ok || err != nil {
		t.Errorf("LookupFeed() after reopen = %v, %v", ok, err)
	}
}

func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "store.db"))

	if err := s.StartRun(ctx, "run-1", time.Now()); err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	for _, name := range []string{"items", "abilities"} {
		if err := s.SaveDocument(ctx, "run-1", storage.Document{Name: name, Size: 10, SHA256: "ff"}); err != nil {
			t.Fatalf("SaveDocument() error = %v", err)
		}
	}
	if err := s.FinishRun(ctx, "run-1", time.Now(), errors.New("cluster: boom")); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	want := Run{ID: "run-1", Status: "failed", Error: "cluster: boom", Documents: 2}
	if run != want {
		t.Errorf("LatestRun() = %+v, want %+v", run, want)
	}
}

func TestStore_UpgradeValues(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "store.db"))

	index := transform.NewUpgradeIndex()
	index.Record("axe_berserkers_call", map[string]string{"radius": "400", "duration": "2.4"})
	index.Record("antimage_blink", map[string]string{"blink_range": "1200"})

	if err := s.SaveUpgradeValues(ctx, "run-1", index); !errors.Is(err, ErrIndexOpen) {
		t.Fatalf("SaveUpgradeValues() on open index error = %v, want ErrIndexOpen", err)
	}

	index.Seal()
	if err := s.SaveUpgradeValues(ctx, "run-1", index); err != nil {
		t.Fatalf("SaveUpgradeValues() error = %v", err)
	}

	got, err := s.UpgradeValues(ctx, "run-1")
	if err != nil {
		t.Fatalf("UpgradeValues() error = %v", err)
	}
	want := map[string]map[string]string{
		"axe_berserkers_call": {"radius": "400", "duration": "2.4"},
		"antimage_blink":      {"blink_range": "1200"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UpgradeValues() = %v, want %v", got, want)
	}
}

// Integration tests against real remote databases run only when their
// connection strings are set.
func TestTursoPublisher(t *testing.T) {
	url := os.Getenv("TURSO_DATABASE_URL")
	if url == "" {
		t.Skip("TURSO_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := NewTursoPublisher(ctx, url, os.Getenv("TURSO_AUTH_TOKEN"))
	if err != nil {
		t.Fatalf("NewTursoPublisher() error = %v", err)
	}
	defer p.Close()

	doc := storage.Document{Name: "test_region", SHA256: "00"}
	if err := p.Publish(ctx, "run-test", doc, []byte(`{"1":"US WEST"}`)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestPostgresPublisher(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := NewPostgresPublisher(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresPublisher() error = %v", err)
	}
	defer p.Close()

	doc := storage.Document{Name: "test_region", SHA256: "00"}
	if err := p.Publish(ctx, "run-test", doc, []byte(`{"1":"US WEST"}`)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}
