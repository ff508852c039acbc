// Package supabase is a thin client for the hosted Postgres/Auth/Storage
// platform: PostgREST rows, RPC, GoTrue and Storage over HTTP.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client performs calls against a Supabase project.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	service    bool
	httpClient *http.Client
}

type tokenKey struct{}

// WithAccessToken attaches the caller's access token so that row-level
// security is evaluated as that user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// New creates a new Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		httpClient: httpClient,
	}, nil
}

// Service returns a copy of the client that authenticates with the
// service-role key and bypasses row-level security. It falls back to the
// anon key when no service key is configured.
func (c *Client) Service() *Client {
	if c.serviceKey == "" {
		return c
	}
	cp := *c
	cp.service = true
	return &cp
}

// BaseURL returns the project URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RPC calls a Postgres function exposed by PostgREST.
func (c *Client) RPC(ctx context.Context, fn string, params any) (*Response, error) {
	if params == nil {
		params = map[string]any{}
	}
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/rest/v1/rpc/"+fn, params, nil)
}

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Err returns a typed *Error when the response indicates failure.
func (r *Response) Err() error {
	if r.StatusCode < 400 {
		return nil
	}
	return parseError(r.StatusCode, r.Body)
}

// Decode unmarshals the body into v, or returns the typed error for a
// failed response.
func (r *Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if v == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Total parses the exact count from a Content-Range header ("0-9/42").
// It returns -1 when the header carries no total.
func (r *Response) Total() int64 {
	cr := r.Headers.Get("Content-Range")
	_, total, ok := strings.Cut(cr, "/")
	if !ok || total == "*" {
		return -1
	}
	var n int64
	if _, err := fmt.Sscanf(total, "%d", &n); err != nil {
		return -1
	}
	return n
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, header http.Header) (*Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)
	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	apiKey := c.anonKey
	bearer := c.anonKey
	switch {
	case c.service:
		apiKey = c.serviceKey
		bearer = c.serviceKey
	case AccessToken(req.Context()) != "":
		bearer = AccessToken(req.Context())
	}

	req.Header.Set("apikey", apiKey)
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
