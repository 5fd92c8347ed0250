// Package bookster is the HTTP client for the Bookster
// property-management API. It owns transport concerns only: auth,
// retries, query fallbacks and payload envelope handling. Field-level
// interpretation of the records lives in internal/booking.
package bookster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookcal/internal/booking"
	"bookcal/internal/log"
)

// Config holds client construction parameters. All transport tuning
// lives here rather than in package-level state.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.booksterhq.com/system/api/v1".
	BaseURL string
	// BookingsPath is the bookings endpoint relative to BaseURL.
	BookingsPath string
	// APIKey is sent as the HTTP Basic password with username "x",
	// per the Bookster docs.
	APIKey string
	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration
	// MaxRetries is the number of extra tries per query attempt after
	// a transient failure. Zero means 2.
	MaxRetries int
}

// Client fetches raw booking records. Safe for concurrent use; one
// fetch per property is independent of the others.
type Client struct {
	cfg  Config
	http *http.Client
}

// ErrRedirected reports a 3xx from the API, which in practice means a
// wrong base URL or bad credentials rather than a real redirect.
var ErrRedirected = errors.New("bookster: redirect response, check base URL and API key")

// queryAttempts is the ordered fallback policy for the bookings query.
// The API's server-side filtering has been inconsistent across
// versions, so the client tries the modern parameter first, then the
// legacy one, then an unfiltered fetch relying on client-side
// filtering.
var queryAttempts = []func(propertyID string) url.Values{
	func(id string) url.Values { return url.Values{"property_id": {id}} },
	func(id string) url.Values { return url.Values{"entry_id": {id}} },
	func(string) url.Values { return url.Values{} },
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			// Never follow redirects: surface them to the caller.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// BookingsForProperty fetches every booking record for one property.
// Query attempts are tried in order until one yields records; an empty
// result from every attempt is not an error. Records are additionally
// filtered client-side by entry_id when the payload carries that key.
func (c *Client) BookingsForProperty(ctx context.Context, propertyID string) ([]booking.Record, error) {
	endpoint, err := c.bookingsURL()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, attempt := range queryAttempts {
		params := attempt(propertyID)
		records, err := c.fetch(ctx, endpoint, params)
		if err != nil {
			if errors.Is(err, ErrRedirected) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			log.Warn("bookings query attempt failed",
				"attempt", i+1, "property", propertyID, "err", err)
			continue
		}

		records = filterByEntry(records, propertyID)
		if len(records) > 0 {
			log.Info("bookings fetched",
				"property", propertyID, "attempt", i+1, "records", len(records))
			return records, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	log.Info("bookings fetched", "property", propertyID, "records", 0)
	return nil, nil
}

func (c *Client) bookingsURL() (string, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	path := strings.TrimLeft(c.cfg.BookingsPath, "/")
	if base == "" || path == "" {
		return "", errors.New("bookster: base URL and bookings path are required")
	}
	return base + "/" + path, nil
}

// fetch performs one GET with bounded retries on transient failures.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]booking.Record, error) {
	var lastErr error
	for try := 0; try <= c.cfg.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(try) * 500 * time.Millisecond):
			}
		}

		records, err := c.doOnce(ctx, endpoint, params)
		if err == nil {
			return records, nil
		}
		if errors.Is(err, ErrRedirected) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, endpoint string, params url.Values) ([]booking.Record, error) {
	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("x", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	log.Debug("bookster request", "url", redactURL(u))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, fmt.Errorf("%w (status %d)", ErrRedirected, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		// Drain so the connection can be reused across retries.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bookster: unexpected status %s", resp.Status)
	}

	return decodeBookings(resp.Body)
}

// decodeBookings tolerates the payload envelopes the API has shipped:
// {"data": [...]}, {"results": [...]}, or a bare array.
func decodeBookings(r io.Reader) ([]booking.Record, error) {
	var payload any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("bookster: decode payload: %w", err)
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		if d, ok := v["data"].([]any); ok {
			items = d
		} else if res, ok := v["results"].([]any); ok {
			items = res
		}
	}

	records := make([]booking.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, booking.Record(m))
		}
	}
	return records, nil
}

// filterByEntry keeps only records for the requested property. Applied
// only when at least one record carries entry_id, since unfiltered
// fallback queries return every property's bookings.
func filterByEntry(records []booking.Record, propertyID string) []booking.Record {
	if propertyID == "" {
		return records
	}
	tagged := false
	for _, r := range records {
		if _, ok := r["entry_id"]; ok {
			tagged = true
			break
		}
	}
	if !tagged {
		return records
	}

	out := records[:0:0]
	for _, r := range records {
		if booking.AsString(r["entry_id"]) == propertyID {
			out = append(out, r)
		}
	}
	return out
}

// redactURL hides the path and query of an API URL for logging.
func redactURL(u string) string {
	const redacted = "/...(redacted)"
	i := strings.Index(u, "://")
	if i < 0 {
		return "https://...(redacted)"
	}
	j := strings.IndexByte(u[i+3:], '/')
	if j < 0 {
		return u + redacted
	}
	return u[:i+3+j] + redacted
}
