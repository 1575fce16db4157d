package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/openchain/pkg/buildinfo"
	"github.com/matzehuels/openchain/pkg/cache"
	"github.com/matzehuels/openchain/pkg/errors"
	"github.com/matzehuels/openchain/pkg/graph"
	"github.com/matzehuels/openchain/pkg/observability"
)

// Defaults for NewClient.
const (
	DefaultBaseURL = "http://127.0.0.1:8000/api"
	DefaultTimeout = 30 * time.Second
	DefaultTTL     = time.Hour

	maxBodySize = 8 << 20
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status int    // HTTP status code
	Detail string // "detail" field of the body, if any
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend status %d", e.Status)
}

// AsStatusError extracts a *StatusError from err's chain.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client talks to the recommendation backend.
type Client struct {
	http    *http.Client
	base    string
	headers map[string]string
	cache   cache.Cache
	ttl     time.Duration

	attempts   int
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = NewHTTPClient(d) }
}

// WithCache caches successful recommendation bodies in ch for ttl.
func WithCache(ch cache.Cache, ttl time.Duration) Option {
	return func(c *Client) { c.cache, c.ttl = ch, ttl }
}

// WithRetry makes GET requests try up to attempts times when the backend is
// unreachable or answers 502, 503 or 504. Backoff starts at delay and doubles;
// a non-positive delay means DefaultRetryDelay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = max(attempts, 1)
		if delay <= 0 {
			delay = DefaultRetryDelay
		}
		c.retryDelay = delay
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// NewClient creates a Client for the backend at base. An empty base means
// DefaultBaseURL.
func NewClient(base string, opts ...Option) (*Client, error) {
	if base == "" {
		base = DefaultBaseURL
	}
	if err := errors.ValidateURL(base); err != nil {
		return nil, err
	}
	c := &Client{
		http:    NewHTTPClient(DefaultTimeout),
		base:    strings.TrimRight(base, "/"),
		headers: map[string]string{"Accept": "application/json", "User-Agent": buildinfo.UserAgent()},
		cache:   cache.NewNullCache(),
		ttl:     DefaultTTL,

		attempts:   1,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// Recommend fetches recommendations for q and returns the body verbatim.
// Only 2xx bodies that decode to a non-error graph are cached.
func (c *Client) Recommend(ctx context.Context, q RecommendQuery) ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	key := cache.Key("recommend", q.Type, q.Name, q.Find, q.Count)
	hooks := observability.Cache()
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		hooks.OnCacheHit(ctx, "recommend")
		return data, nil
	}
	hooks.OnCacheMiss(ctx, "recommend")

	body, err := c.get(ctx, "/recommend", q.Values())
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, errors.New(errors.ErrCodeBackend, "backend returned malformed JSON")
	}
	if g, err := graph.DecodeRecommend(body); err == nil && !g.IsError() && !g.IsEmpty() {
		if err := c.cache.Set(ctx, key, body, c.ttl); err == nil {
			hooks.OnCacheSet(ctx, "recommend", len(body))
		}
	}
	return body, nil
}

// Analyze asks the backend to compare nodes a and b and returns the analysis
// text. It is never cached.
func (c *Client) Analyze(ctx context.Context, a, b string) (string, error) {
	v := url.Values{}
	v.Set("node_a", a)
	v.Set("node_b", b)
	body, err := c.get(ctx, "/analyze", v)
	if err != nil {
		return "", err
	}
	var res struct {
		Analysis string `json:"analysis"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", errors.Wrap(errors.ErrCodeBackend, err, "decode analysis")
	}
	return res.Analysis, nil
}

// Health checks that the backend is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	body, err := c.get(ctx, "/health", nil)
	if err != nil {
		return err
	}
	var res struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return errors.Wrap(errors.ErrCodeBackend, err, "decode health")
	}
	if res.Status != "healthy" {
		return errors.New(errors.ErrCodeBackend, "backend status %q", res.Status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, v url.Values) ([]byte, error) {
	var body []byte
	err := retry(ctx, c.attempts, c.retryDelay, func() error {
		var err error
		body, err = c.getOnce(ctx, path, v)
		return err
	})
	return body, err
}

func (c *Client) getOnce(ctx context.Context, path string, v url.Values) ([]byte, error) {
	u := c.base + path
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build request")
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	hooks := observability.HTTP()
	host := req.URL.Host
	hooks.OnRequest(ctx, http.MethodGet, host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, host, req.URL.Path, err)
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, host, req.URL.Path, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkStatus(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	se := &StatusError{Status: code, Detail: parseDetail(body)}
	msg := se.Detail
	if msg == "" {
		msg = MsgBackendError
	}
	return errors.Wrap(errors.ErrCodeBackend, se, "%s", msg)
}

// parseDetail reads the "detail" field of an error body. Non-string details
// (validation error lists) are returned as raw JSON.
func parseDetail(body []byte) string {
	var v struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &v) != nil || len(v.Detail) == 0 || string(v.Detail) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(v.Detail, &s) == nil {
		return s
	}
	return string(v.Detail)
}

func transportError(ctx context.Context, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "请求超时")
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "请求失败")
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}
