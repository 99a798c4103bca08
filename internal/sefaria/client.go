// Package sefaria fetches Breslov texts from the Sefaria library API.
package sefaria

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Sefaria API endpoint.
const DefaultBaseURL = "https://www.sefaria.org/api"

// Client is a paced, retrying HTTP client for the Sefaria texts API. All
// requests share one rate limiter so concurrent fetches stay polite.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root, mostly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithPacing sets the minimum interval between requests.
func WithPacing(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithRetryPolicy overrides the default retry behavior.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// NewClient builds a Client with 500ms pacing and the default retry policy.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		retry:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchChapter retrieves one chapter ref and splits it into per-paragraph
// passages. A 404 means the ref does not exist upstream and yields
// (nil, nil): absence, not failure. Chapters with more than one paragraph
// get a ":N" suffix on each passage ref, 1-based, matching Sefaria's own
// segment addressing.
func (c *Client) FetchChapter(ctx context.Context, ref string) ([]Passage, error) {
	var resp textResponse
	found := false

	err := c.retry.do(ctx, func() (bool, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
		r, retryable, err := c.getText(ctx, ref)
		if err != nil {
			return retryable, err
		}
		if r != nil {
			resp = *r
			found = true
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	if !found {
		return nil, nil
	}
	return paragraphs(ref, resp), nil
}

// getText performs a single API call. The second return reports whether a
// failure is worth retrying.
func (c *Client) getText(ctx context.Context, ref string) (*textResponse, bool, error) {
	u := fmt.Sprintf("%s/texts/%s?context=0&commentary=0&pad=0", c.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, httpResp.Body)
		return nil, false, nil
	case httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, httpResp.Body)
		return nil, true, fmt.Errorf("sefaria returned status %d", httpResp.StatusCode)
	case httpResp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, httpResp.Body)
		return nil, false, fmt.Errorf("sefaria returned status %d", httpResp.StatusCode)
	}

	var out textResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decoding response: %w", err)
	}
	return &out, false, nil
}

// paragraphs pairs the Hebrew and English paragraph lists positionally.
// Sefaria usually aligns them; when lengths differ the longer side drives
// and the missing half is left empty.
func paragraphs(ref string, resp textResponse) []Passage {
	n := len(resp.Hebrew)
	if len(resp.English) > n {
		n = len(resp.English)
	}
	if n == 0 {
		return nil
	}

	book := resp.Book
	if book == "" {
		book = ref
	}

	out := make([]Passage, 0, n)
	for i := 0; i < n; i++ {
		p := Passage{
			Ref:           ref,
			Book:          book,
			VersionTitle:  resp.VersionTitle,
			VersionSource: resp.VersionSource,
		}
		if n > 1 {
			p.Ref = fmt.Sprintf("%s:%d", ref, i+1)
		}
		if i < len(resp.Hebrew) {
			p.Hebrew = resp.Hebrew[i]
		}
		if i < len(resp.English) {
			p.English = resp.English[i]
		}
		out = append(out, p)
	}
	return out
}
