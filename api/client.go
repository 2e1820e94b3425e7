package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"github.com/alexballas/xfilehost/config"
	"github.com/alexballas/xfilehost/logging"
)

// TokenSource supplies the bearer token. An empty token sends no
// Authorization header.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

type Option func(*Client)

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client talks to the file service.
type Client struct {
	base    *url.URL
	baseURL string
	tokens  TokenSource
	log     zerolog.Logger

	// reads may retry, writes never do.
	reads  *http.Client
	writes *http.Client
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, config.ErrNoBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base_url %q", cfg.BaseURL)
	}

	c := &Client{
		base:    base,
		baseURL: base.String(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		tok, err := cfg.ResolveToken()
		if err != nil {
			return nil, err
		}
		c.tokens = StaticToken(tok)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	c.writes = &http.Client{
		Transport: newTransport(cfg.HTTP.DisableHTTP2),
		Timeout:   timeout,
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Transport: c.writes.Transport,
		Timeout:   timeout,
	}
	retryClient.RetryMax = cfg.HTTP.ReadRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = logging.Retry(c.log)
	// Keep the final response so server error messages survive.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.reads = retryClient.StandardClient()

	return c, nil
}

func newTransport(disableHTTP2 bool) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 16
	if disableHTTP2 {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
		return tr
	}
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)
	return tr
}

// BaseURL returns the configured base without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveLink resolves link against the configured base URL.
func (c *Client) ResolveLink(link string) string {
	return ResolveLink(c.baseURL, link)
}

// ListFiles fetches one page of endpoint.
func (c *Client) ListFiles(ctx context.Context, endpoint string, page, pageSize int) (*Page, error) {
	u, err := url.Parse(c.requestURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, c.reads, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Page
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &out, nil
}

// BatchDelete deletes ids on the server.
func (c *Client) BatchDelete(ctx context.Context, ids []int64) error {
	resp, err := c.doRequest(ctx, c.writes, http.MethodDelete, c.requestURL("/files/batch-delete"), idsRequest{IDs: ids})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// BatchDownload asks the server to zip ids.
func (c *Client) BatchDownload(ctx context.Context, ids []int64) (*Blob, error) {
	resp, err := c.doRequest(ctx, c.writes, http.MethodPost, c.requestURL("/files/batch-download"), idsRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	return readBlob(resp, "")
}

// Fetch downloads the payload behind link.
func (c *Client) Fetch(ctx context.Context, link string) (*Blob, error) {
	resp, err := c.doRequest(ctx, c.reads, http.MethodGet, c.requestURL(link), nil)
	if err != nil {
		return nil, err
	}
	return readBlob(resp, nameFromLink(link))
}

func (c *Client) requestURL(link string) string {
	resolved := c.ResolveLink(link)
	if strings.HasPrefix(resolved, "//") {
		resolved = c.base.Scheme + ":" + resolved
	}
	return resolved
}

// doRequest performs an HTTP request with authentication. A non-nil body is
// sent as JSON. Non-2xx responses are returned as *Error.
func (c *Client) doRequest(ctx context.Context, hc *http.Client, method, rawURL string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("url", req.URL.Redacted()).Msg("request failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.log.Debug().
		Str("method", method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, errorFromBody(resp.StatusCode, data)
	}
	return resp, nil
}

// authorize attaches the bearer token, only for requests to the API host.
func (c *Client) authorize(req *http.Request) error {
	if !strings.EqualFold(req.URL.Host, c.base.Host) {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return nil
}

func readBlob(resp *http.Response, fallbackName string) (*Blob, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrTransport, err)
	}
	name := fallbackName
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return &Blob{
		Name:        name,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
