// Package remote fetches catalogs, template files and directory listings
// from the template repository over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/dnscache"
)

const (
	// DefaultTextTimeout bounds catalog and plain file fetches.
	DefaultTextTimeout = 5 * time.Second
	// DefaultBinaryTimeout bounds binary and archive fetches.
	DefaultBinaryTimeout = 3 * DefaultTextTimeout
	// DefaultListTimeout bounds directory listing calls.
	DefaultListTimeout = 10 * time.Second

	defaultUserAgent = "vibery-cli"
	githubJSON       = "application/vnd.github.v3+json"

	// maxBodySize caps any single response body.
	maxBodySize = 50 << 20
)

// ProgressFunc receives (done, total) units. total is -1 when unknown.
type ProgressFunc func(done, total int64)

// Entry is one item of a directory listing.
type Entry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
	URL         string `json:"url"`
}

// Client talks to the template repository. It is safe for sequential use
// by a single command; it keeps one circuit breaker per host.
type Client struct {
	repo       Repo
	httpClient *http.Client
	baseURL    string
	apiURL     string
	userAgent  string
	token      string

	textTimeout   time.Duration
	binaryTimeout time.Duration
	listTimeout   time.Duration
	maxBody       int64

	breakers *breakerSet
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default DNS-caching HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL overrides the raw content base URL.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.baseURL = trimSlash(u)
		}
	}
}

// WithAPIURL overrides the contents API base URL.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.apiURL = trimSlash(u)
		}
	}
}

// WithToken sends a bearer token to the contents API.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithTimeouts overrides the text and binary fetch timeouts.
func WithTimeouts(text, binary time.Duration) Option {
	return func(cl *Client) {
		cl.textTimeout = text
		cl.binaryTimeout = binary
	}
}

// WithListTimeout overrides the directory listing timeout.
func WithListTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.listTimeout = d }
}

// WithBreakerThreshold sets how many consecutive transient failures open a
// host's circuit. Zero disables circuit breaking.
func WithBreakerThreshold(n int64) Option {
	return func(cl *Client) { cl.breakers = newBreakerSet(n) }
}

// New creates a client for repo.
func New(repo Repo, opts ...Option) *Client {
	c := &Client{
		repo:          repo.withDefaults(),
		httpClient:    newHTTPClient(),
		userAgent:     defaultUserAgent,
		textTimeout:   DefaultTextTimeout,
		binaryTimeout: DefaultBinaryTimeout,
		listTimeout:   DefaultListTimeout,
		maxBody:       maxBodySize,
		breakers:      newBreakerSet(defaultBreakerThreshold),
	}
	c.baseURL = c.repo.RawBaseURL()
	c.apiURL = defaultAPIURL
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}

// FetchCatalog downloads the raw catalog document.
func (c *Client) FetchCatalog(ctx context.Context) ([]byte, error) {
	return c.FetchText(ctx, c.CatalogURL())
}

// FetchText downloads a text file. Content that is not valid UTF-8 fails
// with ErrNotText so callers can retry it as binary.
func (c *Client) FetchText(ctx context.Context, url string) ([]byte, error) {
	data, err := c.get(ctx, url, c.textTimeout, nil, nil)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrNotText, url)
	}
	return data, nil
}

// FetchBinary downloads arbitrary bytes with the longer binary timeout,
// reporting byte progress when the size is known.
func (c *Client) FetchBinary(ctx context.Context, url string, onProgress ProgressFunc) ([]byte, error) {
	return c.get(ctx, url, c.binaryTimeout, nil, onProgress)
}

// ListDirectory calls the contents API for a directory URL.
func (c *Client) ListDirectory(ctx context.Context, url string) ([]Entry, error) {
	headers := map[string]string{"Accept": githubJSON}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	data, err := c.get(ctx, url, c.listTimeout, headers, nil)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A file URL returns a single object instead of a list.
		return nil, fmt.Errorf("invalid directory listing from %s: %w", url, err)
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration, headers map[string]string, onProgress ProgressFunc) ([]byte, error) {
	breaker := c.breakers.get(hostOf(url))
	if breaker != nil && !breaker.Ready() {
		return nil, fmt.Errorf("circuit open for %s: %w", hostOf(url), ErrUnavailable)
	}

	data, err := c.do(ctx, url, timeout, headers, onProgress)

	if breaker != nil {
		// Structural and quota answers prove the host is up.
		if err == nil || IsNotFound(err) || errors.Is(err, ErrRateLimited) {
			breaker.Success()
		} else {
			breaker.Fail()
		}
	}
	return data, err
}

func (c *Client) do(ctx context.Context, url string, timeout time.Duration, headers map[string]string, onProgress ProgressFunc) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	total := resp.ContentLength

	var buf bytes.Buffer
	body := io.LimitReader(resp.Body, c.maxBody+1)
	if onProgress == nil {
		if _, err := buf.ReadFrom(body); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, url, err)
		}
		if int64(buf.Len()) > c.maxBody {
			return nil, c.tooLarge(url)
		}
		return buf.Bytes(), nil
	}

	chunk := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if int64(buf.Len()) > c.maxBody {
				return nil, c.tooLarge(url)
			}
			onProgress(int64(buf.Len()), total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, url, readErr)
		}
	}
	done := int64(buf.Len())
	onProgress(done, done)
	return buf.Bytes(), nil
}

func (c *Client) tooLarge(url string) error {
	return fmt.Errorf("%w: response too large from %s (over %d bytes)", ErrUnavailable, url, c.maxBody)
}
