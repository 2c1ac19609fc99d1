package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kdag/pkg/buildinfo"
	"github.com/matzehuels/kdag/pkg/errors"
	"github.com/matzehuels/kdag/pkg/httputil"
	"github.com/matzehuels/kdag/pkg/observability"
	"github.com/matzehuels/kdag/pkg/project"
)

// DefaultBaseURL is the backend's local development address.
const DefaultBaseURL = "http://localhost:8000"

// Client talks to the backend REST API.
type Client struct {
	http    *http.Client
	base    *url.URL
	headers map[string]string
	policy  httputil.Policy
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = httputil.NewClient(d) }
}

// WithRetry sets the retry policy for GET requests.
func WithRetry(p httputil.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the backend at baseURL. An empty baseURL uses
// DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid API URL: %q", baseURL)
	}
	c := &Client{
		http:    httputil.NewClient(0),
		base:    u,
		headers: map[string]string{"User-Agent": buildinfo.UserAgent()},
		policy:  httputil.Policy{Attempts: 1},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address the client was created with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// get decodes the JSON body of a GET into out, retrying per policy.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.policy.Do(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, query, nil, out)
	})
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode %s %s", method, path)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s %s", method, path)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.exchange(req)
}

// exchange sends req and returns the body of a 2xx response.
func (c *Client) exchange(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	method, host, path := req.Method, req.URL.Host, req.URL.Path
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.NetworkError(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))
	c.logger.Debug("backend", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, httputil.NetworkError(err, "read %s %s", method, path)
	}
	if err := httputil.CheckStatus(resp.StatusCode, detail(data)); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return data, nil
}

// detail extracts FastAPI's {"detail": ...} explanation from an error body.
func detail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		return s
	}
	// Validation failures carry a list of {loc, msg} objects.
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(payload.Detail)
}

func decodeProject(data []byte, out *project.Project) error {
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode project")
	}
	return nil
}
