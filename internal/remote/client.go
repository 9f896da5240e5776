package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/clubhouse/internal/models"
)

const (
	// DefaultTimeout bounds every request to the remote store.
	DefaultTimeout   = 5 * time.Second
	defaultUserAgent = "clubhouse/0.1"
)

// ErrInvalidClubID is returned for identifiers that cannot form a single
// path segment.
var ErrInvalidClubID = errors.New("invalid club id")

// StatusError reports a non-success HTTP status from the remote store.
type StatusError struct {
	Method string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote %s returned status %d", e.Method, e.Code)
}

// Client talks to an unauthenticated key-value endpoint that stores one
// JSON document per club at {endpoint}/{clubId}.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	userAgent string
	tracer    trace.Tracer
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a Client for endpoint, which must be an absolute http(s)
// URL. Query and fragment are discarded.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	base, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,
		tracer:    otel.Tracer("github.com/mmynk/clubhouse/internal/remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the normalised base URL.
func (c *Client) Endpoint() string {
	return c.baseURL.String()
}

// Push stores snap as the club's document.
func (c *Client) Push(ctx context.Context, clubID string, snap models.Snapshot) (err error) {
	ctx, span := c.tracer.Start(ctx, "remote.push", trace.WithAttributes(
		attribute.String("club.id", clubID),
		attribute.Int64("snapshot.updated_at", snap.UpdatedAt),
	))
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(snap.Normalize())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	span.SetAttributes(attribute.Int("http.request.body.size", len(body)))

	resp, err := c.do(ctx, http.MethodPut, clubID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: http.MethodPut, Code: resp.StatusCode}
	}
	return nil
}

// Pull fetches the club's document. found is false when the remote has
// nothing stored yet (404, empty body or JSON null). The remote is not
// trusted: anything that is not a JSON object is an error.
func (c *Client) Pull(ctx context.Context, clubID string) (snap models.PartialSnapshot, found bool, err error) {
	ctx, span := c.tracer.Start(ctx, "remote.pull", trace.WithAttributes(
		attribute.String("club.id", clubID),
	))
	defer func() { endSpan(span, err) }()

	resp, err := c.do(ctx, http.MethodGet, clubID, nil)
	if err != nil {
		return snap, false, err
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode == http.StatusNotFound {
		return snap, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return snap, false, &StatusError{Method: http.MethodGet, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return snap, false, fmt.Errorf("read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.response.body.size", len(body)))

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return snap, false, nil
	}
	if body[0] != '{' {
		return snap, false, errors.New("decode response: remote document is not a JSON object")
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		return models.PartialSnapshot{}, false, fmt.Errorf("decode response: %w", err)
	}
	return snap, true, nil
}

func (c *Client) do(ctx context.Context, method, clubID string, body io.Reader) (*http.Response, error) {
	reqURL, err := c.documentURL(clubID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("execute request: %w", err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) documentURL(clubID string) (string, error) {
	id := strings.TrimSpace(clubID)
	if id == "" || strings.ContainsAny(id, "/?#% ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidClubID, clubID)
	}
	return c.baseURL.JoinPath(id).String(), nil
}

// cancelOnClose releases the request timeout once the body has been read.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func parseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("remote endpoint is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
