package esi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const userAgent = "eve-data-hub/1.0 (github.com)"

// ErrResourceUnavailable marks a fetch whose transport-level response was not
// successful and yielded no data at all.
var ErrResourceUnavailable = errors.New("market data unavailable")

// ErrMalformedPayload marks a response body that did not parse into the
// expected shape. Treated like ErrResourceUnavailable by callers.
var ErrMalformedPayload = errors.New("malformed market payload")

// ErrInvalidInput marks a missing or unresolvable typeID/region reference.
var ErrInvalidInput = errors.New("invalid type or region")

// Client is a rate-limited HTTP client for the market REST API.
type Client struct {
	http    *http.Client
	sem     chan struct{}
	baseURL string
}

// NewClient creates a market API client rooted at baseURL
// (e.g. "https://esi.evetech.net/latest/markets"). Up to 20 requests may be
// in flight at once.
func NewClient(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		sem:     make(chan struct{}, 20),
		baseURL: baseURL,
	}
}

// HealthCheck reports whether the API endpoint is reachable. Any HTTP
// response counts as reachable; only transport failures do not.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// GetJSON fetches a URL and decodes the JSON response into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst interface{}) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: HTTP %d: %s", ErrResourceUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// getPage fetches one page of a paginated endpoint and returns the decoded
// rows together with the total page count from the X-Pages header
// (defaulting to 1 when absent).
func (c *Client) getPage(ctx context.Context, url string, page int, dst interface{}) (int, error) {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s&page=%d", url, page), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: HTTP %d", ErrResourceUnavailable, resp.StatusCode)
	}

	totalPages := 1
	if p := resp.Header.Get("X-Pages"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			totalPages = n
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return totalPages, nil
}
