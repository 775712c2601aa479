package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completedRun() RunSummary {
	return RunSummary{
		RunID:      "3f2c",
		Documents:  23,
		TotalBytes: 4812345,
		Duration:   2*time.Minute + 5*time.Second,
		Skipped:    []string{"cluster"},
		FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// TestRunCompletedPayload_Format tests the success embed
func TestRunCompletedPayload_Format(t *testing.T) {
	payload := NewRunCompletedPayload(completedRun())

	// No @here for success message
	if strings.Contains(payload.Content, "@here") {
		t.Error("Success message should not have @here mention")
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("Expected 1 embed, got %d", len(payload.Embeds))
	}

	embed := payload.Embeds[0]
	if !strings.Contains(embed.Title, "Build Complete") {
		t.Errorf("Expected title to contain 'Build Complete', got: %s", embed.Title)
	}
	if embed.Color != 5763719 {
		t.Errorf("Expected green color (5763719), got: %d", embed.Color)
	}
	if len(embed.Fields) != 4 {
		t.Fatalf("Expected 4 fields, got %d", len(embed.Fields))
	}
	if embed.Fields[1].Value != "4,812,345 bytes" {
		t.Errorf("Expected size '4,812,345 bytes', got: %s", embed.Fields[1].Value)
	}
	if embed.Fields[2].Value != "2m 5s" {
		t.Errorf("Expected duration '2m 5s', got: %s", embed.Fields[2].Value)
	}
	if embed.Fields[3].Name != "Skipped" || embed.Fields[3].Value != "cluster" {
		t.Errorf("Expected skipped field, got: %+v", embed.Fields[3])
	}
	if embed.Footer.Text != "Run 3f2c" {
		t.Errorf("Expected run id footer, got: %s", embed.Footer.Text)
	}
	if embed.Timestamp != "2024-05-01T12:00:00Z" {
		t.Errorf("Expected timestamp, got: %s", embed.Timestamp)
	}
}

// TestRunFailedPayload_Format tests the failure embed
func TestRunFailedPayload_Format(t *testing.T) {
	s := completedRun()
	s.Failures = []string{"items: fetch failed", "patchnotes: needs items: dependency failed"}
	payload := NewRunFailedPayload(s)

	if !strings.Contains(payload.Content, "@here") {
		t.Error("Expected @here mention in content")
	}

	embed := payload.Embeds[0]
	if embed.Color != 15158332 {
		t.Errorf("Expected red color (15158332), got: %d", embed.Color)
	}
	want := "• items: fetch failed\n• patchnotes: needs items: dependency failed"
	if embed.Description != want {
		t.Errorf("Description = %q, want %q", embed.Description, want)
	}
	if embed.Fields[0].Value != "2" {
		t.Errorf("Expected 2 failed sources, got: %s", embed.Fields[0].Value)
	}
}

func TestRunFailedPayload_Truncates(t *testing.T) {
	s := completedRun()
	s.Failures = []string{strings.Repeat("x", 5000)}
	desc := NewRunFailedPayload(s).Embeds[0].Description
	if n := len([]rune(desc)); n != maxDescription {
		t.Errorf("Description length = %d, want %d", n, maxDescription)
	}
}

// TestWebhookClient_SendRunReport tests the HTTP call for both outcomes
func TestWebhookClient_SendRunReport(t *testing.T) {
	tests := []struct {
		name      string
		failures  []string
		wantColor int
	}{
		{"completed", nil, colorGreen},
		{"failed", []string{"items: boom"}, colorRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var receivedBody []byte
			var receivedContentType, receivedMethod string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				receivedMethod = r.Method
				receivedContentType = r.Header.Get("Content-Type")
				receivedBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			s := completedRun()
			s.Failures = tt.failures
			if err := NewWebhookClient(server.URL).SendRunReport(context.Background(), s); err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}

			if receivedMethod != "POST" || receivedContentType != "application/json" {
				t.Errorf("request = %s %s", receivedMethod, receivedContentType)
			}
			var payload WebhookPayload
			if err := json.Unmarshal(receivedBody, &payload); err != nil {
				t.Fatalf("Failed to parse sent payload: %v", err)
			}
			if len(payload.Embeds) != 1 || payload.Embeds[0].Color != tt.wantColor {
				t.Errorf("payload = %+v", payload)
			}
		})
	}
}

// TestWebhookClient_WebhookError tests handling of webhook errors
func TestWebhookClient_WebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Invalid webhook"}`))
	}))
	defer server.Close()

	err := NewWebhookClient(server.URL).SendRunReport(context.Background(), completedRun())
	if err == nil {
		t.Error("Expected error for bad request")
	}
}

// TestWebhookClient_ContextCancelled tests handling of cancelled context
func TestWebhookClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewWebhookClient(server.URL).SendRunReport(ctx, completedRun()); err == nil {
		t.Error("Expected context cancelled error")
	}
}

// TestWebhookClient_RateLimited tests handling of Discord rate limiting
func TestWebhookClient_RateLimited(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.05")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewWebhookClient(server.URL).SendRunReport(context.Background(), completedRun())
	if err != nil {
		t.Errorf("Expected success after retry, got: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts (1 retry), got: %d", attempts.Load())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 7*time.Second, "3m 7s"},
		{18*time.Hour + 32*time.Minute, "18h 32m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 47832: "47,832", 1234567: "1,234,567"}
	for n, want := range tests {
		if got := formatNumber(n); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", n, got, want)
		}
	}
}
