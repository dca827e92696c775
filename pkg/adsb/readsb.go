package adsb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultClientTimeout bounds a single aircraft.json request.
const DefaultClientTimeout = 10 * time.Second

// maxFeedSize caps how much of an aircraft.json body is read (32 MiB).
const maxFeedSize = 32 << 20

// ReadsbClient implements FeedSource against a readsb/tar1090 web root.
// The feed lives at <baseURL>/aircraft.json.
type ReadsbClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOptions tunes a ReadsbClient. Zero values fall back to defaults.
type ClientOptions struct {
	// Timeout for a single request (default: 10 seconds)
	Timeout time.Duration

	// RequestsPerSecond caps outgoing requests; <= 0 disables limiting
	RequestsPerSecond float64

	// Logger for per-request diagnostics; nil discards
	Logger *zap.Logger
}

// NewReadsbClient creates a client for the receiver at baseURL
// (e.g. "http://192.168.3.200/run/readsb"). A trailing slash is ignored.
func NewReadsbClient(baseURL string, opts ClientOptions) *ReadsbClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultClientTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &ReadsbClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: opts.Logger,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// FeedURL returns the full aircraft.json URL.
func (c *ReadsbClient) FeedURL() string {
	return c.baseURL + "/aircraft.json"
}

// aircraftJSON is the top-level readsb document. Only the aircraft array is
// decoded so unexpected sibling fields cannot discard it, and its elements
// are kept raw so a single malformed entry does not discard the rest.
type aircraftJSON struct {
	Aircraft json.RawMessage `json:"aircraft"`
}

// FetchAircraft retrieves the current aircraft set.
//
// Transport failures, non-2xx responses, and bodies that are not valid JSON
// return an error. A valid JSON body without an "aircraft" array yields an
// empty list.
func (c *ReadsbClient) FetchAircraft(ctx context.Context) ([]RawAircraft, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch aircraft: %w", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting (429 Too Many Requests)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "Rate limit exceeded",
			Headers:    extractRateLimitHeaders(resp.Header),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: c.FeedURL()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return c.decode(body)
}

func (c *ReadsbClient) decode(body []byte) ([]RawAircraft, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to decode response: invalid JSON")
	}

	var doc aircraftJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		// Valid JSON that is not an object.
		c.logger.Debug("feed document has unexpected shape", zap.Error(err))
		return []RawAircraft{}, nil
	}

	var elems []json.RawMessage
	if len(doc.Aircraft) > 0 {
		if err := json.Unmarshal(doc.Aircraft, &elems); err != nil {
			c.logger.Debug("feed aircraft field is not an array", zap.Error(err))
			return []RawAircraft{}, nil
		}
	}

	result := make([]RawAircraft, 0, len(elems))
	for i, elem := range elems {
		var ac RawAircraft
		if err := json.Unmarshal(elem, &ac); err != nil {
			c.logger.Debug("skipping malformed aircraft entry",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		result = append(result, ac)
	}
	return result, nil
}

// StatusError is returned when the feed answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed %s returned status %d", e.URL, e.StatusCode)
}

// RateLimitError represents an HTTP 429 rate limit error with retry information.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Headers    RateLimitHeaders
}

// RateLimitHeaders contains rate limit information from response headers.
type RateLimitHeaders struct {
	Limit     int       // X-Rate-Limit-Limit: Maximum requests allowed
	Remaining int       // X-Rate-Limit-Remaining: Requests remaining in current window
	Reset     time.Time // X-Rate-Limit-Reset: When the rate limit resets
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError checks if an error is, or wraps, a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter extracts the Retry-After header value.
// Returns the duration to wait, or 0 if header is not present.
// Supports both delay-seconds (integer) and HTTP-date formats.
//
// Examples:
//
//	Retry-After: 30                            -> 30 seconds
//	Retry-After: Wed, 21 Oct 2015 07:28:00 GMT -> duration until that time
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// extractRateLimitHeaders reads the X-Rate-Limit-* (or X-RateLimit-*) headers.
// Missing values are reported as -1.
func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	rlh := RateLimitHeaders{
		Limit:     -1,
		Remaining: -1,
	}

	if val, ok := headerInt(headers, "X-Rate-Limit-Limit", "X-RateLimit-Limit"); ok {
		rlh.Limit = val
	}
	if val, ok := headerInt(headers, "X-Rate-Limit-Remaining", "X-RateLimit-Remaining"); ok {
		rlh.Remaining = val
	}
	if val, ok := headerInt(headers, "X-Rate-Limit-Reset", "X-RateLimit-Reset"); ok {
		rlh.Reset = time.Unix(int64(val), 0)
	}

	return rlh
}

// headerInt returns the first of names present as an integer.
func headerInt(headers http.Header, names ...string) (int, bool) {
	for _, name := range names {
		v := headers.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
