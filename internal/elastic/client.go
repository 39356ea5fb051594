// Package elastic is a minimal Elasticsearch HTTP client: authenticated
// JSON round-trips against a fixed base URL, one attempt each.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gwerrors "github.com/Aman-CERP/elasticmcp/internal/errors"
)

// DefaultTimeout bounds every round-trip when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 64 << 10

// Config holds connection settings.
type Config struct {
	URL                string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Hook observes every completed round-trip. status is 0 when no response was
// received.
type Hook func(method, endpoint string, status int, elapsed time.Duration, err error)

// Option configures a Client.
type Option func(*Client)

// WithHook registers a round-trip observer.
func WithHook(h Hook) Option {
	return func(c *Client) { c.hook = h }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. The caller keeps
// ownership of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
			c.transport = nil
		}
	}
}

// Client talks to one Elasticsearch endpoint. It is safe for concurrent use.
type Client struct {
	base      string
	cfg       Config
	client    *http.Client
	transport *http.Transport // owned, closed by Close
	hook      Hook
	logger    *slog.Logger
}

// New validates cfg and builds a client. No request is made.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, gwerrors.ConfigError(fmt.Sprintf("invalid Elasticsearch URL %q", cfg.URL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, gwerrors.ConfigError(fmt.Sprintf("invalid Elasticsearch URL %q: scheme must be http or https", cfg.URL), nil)
	}
	if u.Host == "" {
		return nil, gwerrors.ConfigError(fmt.Sprintf("invalid Elasticsearch URL %q: missing host", cfg.URL), nil)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed cluster certificates
	}

	c := &Client{
		base:      strings.TrimRight(u.String(), "/"),
		cfg:       cfg,
		client:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		transport: transport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the configured base URL.
func (c *Client) URL() string {
	return c.base
}

// Close releases idle connections. The client must not be used afterwards.
func (c *Client) Close() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

// Do sends one request and decodes the JSON response into out, which may be
// nil. path is relative to the base URL and may carry a query string.
//
// Only GET, POST and PUT are supported; other methods fail before any I/O.
// A non-2xx response yields a *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (err error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return gwerrors.New(gwerrors.ErrCodeUnsupportedMethod,
			fmt.Sprintf("unsupported HTTP method %q", method), nil).
			WithSuggestion("Use GET, POST or PUT")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gwerrors.InternalError("failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.base + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return gwerrors.ConfigError(fmt.Sprintf("failed to create request for %s", path), err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	endpoint := Endpoint(path)
	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		if c.hook != nil {
			c.hook(method, endpoint, status, elapsed, err)
		}
		c.logger.Debug("elasticsearch request",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("status", status),
			slog.Int64("duration_ms", elapsed.Milliseconds()))
	}()

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return gwerrors.New(gwerrors.ErrCodeMalformedResponse, "failed to decode response", err)
	}
	return nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return gwerrors.New(gwerrors.ErrCodeNetworkTimeout, "request to Elasticsearch timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return gwerrors.New(gwerrors.ErrCodeNetworkUnavailable, "request to Elasticsearch was cancelled", err)
	}
	return gwerrors.NetworkError("failed to reach Elasticsearch", err).
		WithSuggestion("Check that ES_HOST points at a running cluster")
}

// Endpoint reduces a request path to a low-cardinality label: the first API
// segment (such as "_search" or "_cat/indices"), or "root" for the base URL.
// Index names cannot start with an underscore, so document ids after the
// API segment never leak into the label.
func Endpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "_") {
			continue
		}
		if i+1 < len(segments) && (seg == "_cat" || seg == "_cluster" || seg == "_stats") {
			return seg + "/" + segments[i+1]
		}
		return seg
	}
	return "root"
}
