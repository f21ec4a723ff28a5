// Package peerclient is the thin HTTP wrapper a node uses to talk to its
// peers: get/put/post/delete with path segments, an optional form body,
// optional query parameters, and a fixed per-call timeout (spec.md §4.D).
package peerclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Timeout is the fixed per-call budget spec.md §4.D and §5 require.
const Timeout = 30 * time.Second

// Client issues requests against a single peer base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// cancelOnCloseBody releases a request's per-call context only once the
// caller is done reading the response body, instead of the instant do()
// returns.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// New constructs a Client for baseURL (scheme://host:port, no trailing
// slash).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: Timeout},
	}
}

func (c *Client) buildURL(segments []string, query map[string]string) string {
	u := c.baseURL
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	if len(query) == 0 {
		return u
	}
	v := url.Values{}
	for k, val := range query {
		v.Set(k, val)
	}
	return u + "?" + v.Encode()
}

func (c *Client) do(ctx context.Context, method string, segments []string, query map[string]string, form url.Values) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)

	target := c.buildURL(segments, query)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build %s %s: %w", method, target, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	// The context's timeout must stay live until the body is read, so tie
	// cancel to the body's Close instead of returning with it still pending.
	resp.Body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Get issues a GET to the given path segments with optional query params.
func (c *Client) Get(ctx context.Context, segments []string, query map[string]string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, segments, query, nil)
}

// Put issues a PUT to the given path segments with a form body and optional
// query params.
func (c *Client) Put(ctx context.Context, segments []string, query map[string]string, form url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPut, segments, query, form)
}

// Post issues a POST to the given path segments with a form body and
// optional query params.
func (c *Client) Post(ctx context.Context, segments []string, query map[string]string, form url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, segments, query, form)
}

// Delete issues a DELETE to the given path segments with optional query
// params.
func (c *Client) Delete(ctx context.Context, segments []string, query map[string]string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, segments, query, nil)
}
