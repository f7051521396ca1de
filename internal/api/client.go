// Package api is the HTTP client for the Nova backend: chat, upload and
// history endpoints. Requests go through an injectable HTTPDoer so the
// offline worker can sit in front of the network.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/google/uuid"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/history"
)

// DefaultTimeoutSeconds bounds a single backend request
const DefaultTimeoutSeconds = 120

// HTTPDoer executes HTTP requests; tls_client.HttpClient and sw.Worker satisfy it
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Nova backend
type Client struct {
	baseURL   string
	http      HTTPDoer
	snapshots history.Writer
	logger    *slog.Logger
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets the transport used for every request
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.http = doer
	}
}

// WithSnapshotStore mirrors fetched history into store for offline use
func WithSnapshotStore(store history.Writer) ClientOption {
	return func(c *Client) {
		c.snapshots = store
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewNetworkClient creates the TLS client used to reach the network
func NewNetworkClient(timeoutSeconds int) (tls_client.HttpClient, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds),
		tls_client.WithClientProfile(profiles.Chrome_120),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return httpClient, nil
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	client := &Client{
		baseURL: baseURL,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.http == nil {
		httpClient, err := NewNetworkClient(DefaultTimeoutSeconds)
		if err != nil {
			return nil, err
		}
		client.http = httpClient
	}

	return client, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves an endpoint path against the base URL
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// response is a fully read backend response
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status <= 299
}

// do sends one request and reads the whole body. Transport and read
// failures are returned as *errors.NetworkError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	c.logger.Debug("backend request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError(path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.NewNetworkError(path, err)
	}

	c.logger.Debug("backend response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(data))
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
