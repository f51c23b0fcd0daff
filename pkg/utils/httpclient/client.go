// Package httpclient provides the JSON transport used to talk to the catalog service.
//
// A Client sends exactly one request per call. It never retries and sets no
// timeout of its own; the caller's context is the only deadline.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/utils/id"
	"github.com/kart-io/catalog-console/pkg/utils/json"
)

// HeaderRequestID carries the per-request identifier.
const HeaderRequestID = "X-Request-ID"

// Observer receives one observation per exchange. status is 0 when no
// response was obtained.
type Observer interface {
	ObserveRequest(method string, status int, d time.Duration)
}

// Query holds query parameters. Nil values, including typed nil pointers,
// are dropped; every other value is stringified. Empty strings are sent.
type Query map[string]any

// Client is a wrapper around http.Client bound to a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	observer   Observer
	ids        id.Generator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithBearerToken sets the Authorization header. An empty token is ignored.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithObserver records request metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithIDGenerator overrides the request ID generator.
func WithIDGenerator(g id.Generator) Option {
	return func(c *Client) {
		if g != nil {
			c.ids = g
		}
	}
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8080/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		headers:    make(http.Header),
		ids:        id.NewULIDGenerator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Result is a successful response.
type Result struct {
	Status int
	Body   []byte
}

// Empty reports a success response without content (204 or zero-length body).
func (r *Result) Empty() bool {
	return r == nil || r.Status == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0
}

// Decode unmarshals the JSON body into v.
func (r *Result) Decode(v any) error {
	if r.Empty() {
		return errors.ErrInvalidFormat.WithMessage("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.ErrInvalidFormat.WithCause(err)
	}
	return nil
}

// Send issues a single request. body is JSON-encoded when non-nil; a nil body
// sends no payload at all. Non-2xx responses return *APIError.
func (c *Client) Send(ctx context.Context, method, path string, body any, query Query) (*Result, error) {
	target := c.baseURL + path
	if qs := query.Encode(); qs != "" {
		target += "?" + qs
	}

	var reader io.Reader
	hasBody := !isNil(body)
	if hasBody {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.ErrInvalidParam.WithCause(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.ErrInvalidParam.WithCause(err)
	}
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	rid := c.ids.Generate()
	req.Header.Set(HeaderRequestID, rid)
	c.injectTraceContext(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, start)
		logger.Warnw("catalog request failed",
			"method", method,
			"path", path,
			"request_id", rid,
			"error", err.Error(),
		)
		if ctx.Err() != nil {
			return nil, errors.ErrContextCanceled.WithCause(ctx.Err())
		}
		return nil, errors.ErrNetwork.WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	c.observe(method, resp.StatusCode, start)
	if err != nil {
		return nil, errors.ErrNetwork.WithCause(fmt.Errorf("read response body: %w", err))
	}

	logger.Debugw("catalog request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", rid,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, data)
	}
	return &Result{Status: resp.StatusCode, Body: data}, nil
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, time.Since(start))
	}
}

// injectTraceContext 将 W3C Trace Context 头注入到 HTTP 请求中。
// Context 中无活跃 Span 或未设置全局传播器时不做任何处理。
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil || req.Context() == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}
	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}

// Encode renders q as a URL query string with keys in sorted order.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	values := make(url.Values, len(q))
	for k, v := range q {
		s, ok := stringify(v)
		if !ok {
			continue
		}
		values.Set(k, s)
	}
	return values.Encode()
}

func stringify(v any) (string, bool) {
	if isNil(v) {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return fmt.Sprint(rv.Interface()), true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
