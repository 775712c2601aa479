package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dotaconstants/internal/telemetry"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultPerSecond  = 20
	defaultMaxRetries = 4
	defaultUserAgent  = "dotaconstants-builder"

	maxErrorBody = 256
)

// Spec names one upstream document.
type Spec struct {
	URL string
	// Path selects a sub-document of a JSON body (gjson syntax).
	Path string
	// Auth sends the configured bearer token.
	Auth bool
}

// CachedFeed is a previously fetched body with its validators.
type CachedFeed struct {
	URL          string
	ETag         string
	LastModified string
	Body         []byte
	FetchedAt    time.Time
}

// Cache persists bodies between runs for conditional requests.
type Cache interface {
	LookupFeed(ctx context.Context, url string) (CachedFeed, bool, error)
	StoreFeed(ctx context.Context, f CachedFeed) error
}

// Client fetches feeds with a per-second request window, retries on 429
// and 5xx, and remembers every body for the rest of the run so feeds
// shared by several sources are downloaded once.
type Client struct {
	httpClient *http.Client
	token      string
	userAgent  string
	maxRetries uint
	cache      Cache

	group  singleflight.Group
	bodyMu sync.Mutex
	bodies map[string][]byte

	mu        sync.Mutex
	perSecond int
	window    []time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent to credentialed feeds.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHTTPClient replaces the underlying http.Client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps requests per second; zero disables the window.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) { c.perSecond = perSecond }
}

// WithRetries sets the number of attempts per request.
func WithRetries(n uint) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithCache enables conditional requests against a persistent cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		maxRetries: defaultMaxRetries,
		perSecond:  defaultPerSecond,
		bodies:     make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries == 0 {
		c.maxRetries = 1
	}
	return c
}

// HasToken reports whether credentialed feeds can be fetched.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// Load fetches a feed and runs it through the format detector.
func (c *Client) Load(ctx context.Context, spec Spec) (any, error) {
	body, err := c.Fetch(ctx, spec)
	if err != nil {
		return nil, err
	}
	return ParsePath(body, spec.Path), nil
}

// Fetch returns the raw body of spec.URL.
func (c *Client) Fetch(ctx context.Context, spec Spec) ([]byte, error) {
	c.bodyMu.Lock()
	body, ok := c.bodies[spec.URL]
	c.bodyMu.Unlock()
	if ok {
		return body, nil
	}

	// The shared request outlives any single caller; each caller only
	// stops waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(spec.URL, func() (any, error) {
		c.bodyMu.Lock()
		body, ok := c.bodies[spec.URL]
		c.bodyMu.Unlock()
		if ok {
			return body, nil
		}
		return c.fetch(shared, spec)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	body = res.Val.([]byte)

	c.bodyMu.Lock()
	c.bodies[spec.URL] = body
	c.bodyMu.Unlock()
	return body, nil
}

func (c *Client) fetch(ctx context.Context, spec Spec) ([]byte, error) {
	ctx, span := telemetry.Tracer("feed").Start(ctx, "feed.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("feed.url", spec.URL))

	var cached CachedFeed
	var haveCached bool
	if c.cache != nil {
		var err error
		cached, haveCached, err = c.cache.LookupFeed(ctx, spec.URL)
		if err != nil {
			log.Printf("[Feed] cache lookup %s: %v", spec.URL, err)
			haveCached = false
		}
	}

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		if err := c.wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return c.do(ctx, spec, cached, haveCached)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("[Feed] %s attempt %d failed (%v), retrying in %s", spec.URL, attempt, err, next.Round(time.Millisecond))
		}),
	)
	span.SetAttributes(attribute.Int("feed.attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("feed.bytes", len(body)))
	return body, nil
}

// do performs one request. Retryable failures are returned plain,
// everything else is wrapped with backoff.Permanent.
func (c *Client) do(ctx context.Context, spec Spec, cached CachedFeed, haveCached bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if spec.Auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if haveCached {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCached:
		return cached.Body, nil
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", spec.URL, err)
		}
		c.remember(ctx, spec.URL, resp, body)
		return body, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{URL: spec.URL, Code: resp.StatusCode, Body: string(snippet)}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			log.Printf("[Feed] 429 from %s, waiting %ds", spec.URL, secs)
			return nil, backoff.RetryAfter(secs)
		}
	}
	if IsRetryable(resp.StatusCode) {
		return nil, statusErr
	}
	return nil, backoff.Permanent(statusErr)
}

func (c *Client) remember(ctx context.Context, url string, resp *http.Response, body []byte) {
	if c.cache == nil {
		return
	}
	etag := resp.Header.Get("ETag")
	lastMod := resp.Header.Get("Last-Modified")
	if etag == "" && lastMod == "" {
		return
	}
	err := c.cache.StoreFeed(ctx, CachedFeed{
		URL:          url,
		ETag:         etag,
		LastModified: lastMod,
		Body:         body,
		FetchedAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[Feed] cache store %s: %v", url, err)
	}
}

// wait blocks until the request window has room.
func (c *Client) wait(ctx context.Context) error {
	if c.perSecond <= 0 {
		return nil
	}
	for {
		c.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Second)
		kept := c.window[:0]
		for _, t := range c.window {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		c.window = kept

		if len(c.window) < c.perSecond {
			c.window = append(c.window, now)
			c.mu.Unlock()
			return nil
		}
		waitTime := c.window[0].Add(time.Second).Sub(now)
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}
