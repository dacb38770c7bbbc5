package medapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/medibook/libs/httpx"
)

const maxResponseBytes = 1 << 20

// Observer receives per-call latency. *metrics.PortalMetrics satisfies it.
type Observer interface {
	ObserveMedAPI(endpoint, status string, d time.Duration)
}

type Client struct {
	base     *url.URL
	http     *http.Client
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient targets baseURL, e.g. "https://api.example.com/api". Endpoint paths are joined onto it.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("medapi base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse medapi base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("medapi base url must be http(s): %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type ctxKey int

const ctxKeyToken ctxKey = iota

// WithToken attaches the caller's bearer token to outbound calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyToken, token)
}

func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyToken).(string)
	return v
}

type call struct {
	endpoint string
	method   string
	path     []string
	query    url.Values
	body     any
	fallback string
}

func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	u := c.base.JoinPath(cl.path...)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var reader io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", cl.endpoint, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	httpx.PropagateRequestID(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(cl.endpoint, "error", start)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: cl.fallback, Err: err}
	}
	defer resp.Body.Close()
	c.observe(cl.endpoint, strconv.Itoa(resp.StatusCode), start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: cl.fallback, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, cl.fallback)}
	}
	return raw, nil
}

func (c *Client) observe(endpoint, status string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveMedAPI(endpoint, status, time.Since(start))
}

func decode(endpoint string, raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	return q
}
