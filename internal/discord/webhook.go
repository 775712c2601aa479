package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed   = 15158332 // 0xE74C3C - for failed runs
	colorGreen = 5763719  // 0x57F287 - for success

	// Default timeout for webhook requests
	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3

	// Discord rejects embed descriptions longer than this
	maxDescription = 4096
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// RunSummary is what a notification reports about a build run.
type RunSummary struct {
	RunID      string
	Documents  int
	TotalBytes int64
	Duration   time.Duration
	Skipped    []string
	Failures   []string
	FinishedAt time.Time
}

// NewRunCompletedPayload creates a payload for a successful build
func NewRunCompletedPayload(s RunSummary) WebhookPayload {
	fields := []EmbedField{
		{
			Name:   "Documents",
			Value:  formatNumber(s.Documents),
			Inline: true,
		},
		{
			Name:   "Total Size",
			Value:  formatNumber(int(s.TotalBytes)) + " bytes",
			Inline: true,
		},
		{
			Name:   "Duration",
			Value:  formatDuration(s.Duration),
			Inline: true,
		},
	}
	if len(s.Skipped) > 0 {
		fields = append(fields, EmbedField{
			Name:  "Skipped",
			Value: strings.Join(s.Skipped, ", "),
		})
	}

	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:     "✅ Constants Build Complete",
				Color:     colorGreen,
				Fields:    fields,
				Footer:    &EmbedFooter{Text: "Run " + s.RunID},
				Timestamp: timestamp(s.FinishedAt),
			},
		},
	}
}

// NewRunFailedPayload creates a payload for a build with failed sources
func NewRunFailedPayload(s RunSummary) WebhookPayload {
	return WebhookPayload{
		Content: "@here Constants build failed!",
		Embeds: []Embed{
			{
				Title:       "❌ Constants Build Failed",
				Description: truncate("• "+strings.Join(s.Failures, "\n• "), maxDescription),
				Color:       colorRed,
				Fields: []EmbedField{
					{
						Name:   "Failed Sources",
						Value:  formatNumber(len(s.Failures)),
						Inline: true,
					},
					{
						Name:   "Documents Written",
						Value:  formatNumber(s.Documents),
						Inline: true,
					},
					{
						Name:   "Duration",
						Value:  formatDuration(s.Duration),
						Inline: true,
					},
				},
				Footer:    &EmbedFooter{Text: "Run " + s.RunID + " - previous build left in place"},
				Timestamp: timestamp(s.FinishedAt),
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// SendRunReport sends the completed or failed notification for a run
func (c *WebhookClient) SendRunReport(ctx context.Context, s RunSummary) error {
	if len(s.Failures) > 0 {
		return c.sendPayload(ctx, NewRunFailedPayload(s))
	}
	return c.sendPayload(ctx, NewRunCompletedPayload(s))
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Success - Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		// Rate limited - wait and retry
		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := time.Second
			if seconds, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil {
				waitDuration = time.Duration(seconds * float64(time.Second))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}

	s := strconv.Itoa(n)
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// formatDuration formats a duration as "Xh Ym", "Xm Ys" or "Xs"
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
