package sw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/history"
	"github.com/Memphis465/nova/internal/models"
)

// HTTPDoer executes HTTP requests; tls_client.HttpClient satisfies it
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// State is the lifecycle state of a Worker
type State int

const (
	StateNew State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures a Worker
type Option func(*Worker)

// WithCacheName sets the version-tagged cache name
func WithCacheName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.cacheName = name
		}
	}
}

// WithStaticAssets replaces the list of paths pre-cached on install
func WithStaticAssets(paths []string) Option {
	return func(w *Worker) {
		w.assets = append([]string(nil), paths...)
	}
}

// WithLocalStorage sets the store read for the offline history fallback
func WithLocalStorage(store history.Reader) Option {
	return func(w *Worker) {
		w.local = store
	}
}

// WithMetrics records routing decisions into m
func WithMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Worker intercepts every request of the client. Until it is activated it
// passes requests straight to the network; once activated it routes API
// requests network-first and everything else cache-first.
type Worker struct {
	network   HTTPDoer
	storage   CacheStorage
	origin    *url.URL
	cacheName string
	assets    []string
	local     history.Reader
	metrics   *Metrics
	logger    *slog.Logger

	mu          sync.RWMutex
	state       State
	controlling bool
}

// NewWorker creates a worker for the site at origin
func NewWorker(origin string, network HTTPDoer, storage CacheStorage, opts ...Option) (*Worker, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q", origin)
	}
	if network == nil {
		return nil, fmt.Errorf("network client is required")
	}
	if storage == nil {
		return nil, fmt.Errorf("cache storage is required")
	}

	w := &Worker{
		network:   network,
		storage:   storage,
		origin:    u,
		cacheName: models.DefaultCacheName,
		assets:    models.StaticAssets(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// CacheName returns the current cache version string
func (w *Worker) CacheName() string {
	return w.cacheName
}

// Storage returns the cache storage
func (w *Worker) Storage() CacheStorage {
	return w.storage
}

// State returns the lifecycle state
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Controlling reports whether requests are being routed through the caches
func (w *Worker) Controlling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.controlling
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	w.logger.Debug("service worker state", "state", s.String(), "cache", w.cacheName)
}

// Register installs the worker when its cache does not exist yet, then
// activates it. A cache name that is already present counts as installed.
func (w *Worker) Register(ctx context.Context) error {
	installed, err := w.storage.Has(ctx, w.cacheName)
	if err != nil {
		return err
	}
	if installed {
		w.setState(StateInstalled)
	} else if err := w.Install(ctx); err != nil {
		return err
	}
	return w.Activate(ctx)
}

// Install pre-populates the cache with the static assets. The asset list is
// added all-or-nothing and a failed pre-cache does not fail the install.
// The worker skips waiting: it is ready to activate as soon as this returns.
func (w *Worker) Install(ctx context.Context) error {
	w.setState(StateInstalling)

	cache, err := w.storage.Open(ctx, w.cacheName)
	if err != nil {
		w.setState(StateRedundant)
		return err
	}

	entries, err := w.precache(ctx)
	if err != nil {
		w.logger.Warn("pre-cache failed, continuing without static assets", "cache", w.cacheName, "error", err)
	} else {
		for _, entry := range entries {
			if err := cache.Put(ctx, entry); err != nil {
				w.logger.Warn("failed to store static asset", "url", entry.URL, "error", err)
				continue
			}
			w.metrics.cachePut()
		}
	}

	w.setState(StateInstalled)
	return nil
}

func (w *Worker) precache(ctx context.Context) ([]*CachedResponse, error) {
	entries := make([]*CachedResponse, 0, len(w.assets))
	for _, path := range w.assets {
		ref, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid asset path %q: %w", path, err)
		}
		target := w.origin.ResolveReference(ref).String()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := w.network.Do(req)
		if err != nil {
			return nil, apierrors.NewNetworkError(path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, apierrors.NewNetworkError(path, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apierrors.NewAPIError(resp.StatusCode, path, "asset not available")
		}

		entries = append(entries, &CachedResponse{
			URL:        target,
			StatusCode: resp.StatusCode,
			Header:     cloneHeader(resp.Header),
			Body:       body,
			StoredAt:   time.Now(),
		})
	}
	return entries, nil
}

// Activate deletes every cache whose name differs from the current version
// and claims the client. Deletion failures are reported but do not prevent
// activation.
func (w *Worker) Activate(ctx context.Context) error {
	w.setState(StateActivating)

	names, err := w.storage.Keys(ctx)
	if err != nil {
		w.setState(StateRedundant)
		return err
	}

	var errs []error
	for _, name := range names {
		if name == w.cacheName {
			continue
		}
		deleted, err := w.storage.Delete(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if deleted {
			w.metrics.cacheDeleted()
			w.logger.Info("deleted outdated cache", "cache", name)
		}
	}

	w.mu.Lock()
	w.state = StateActivated
	w.controlling = true
	w.mu.Unlock()

	return errors.Join(errs...)
}

// Do routes req according to its URL
func (w *Worker) Do(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("nil request")
	}
	if !w.Controlling() {
		w.metrics.observe(policyPassthrough, outcomeNetwork)
		return w.network.Do(req)
	}
	if IsAPIRequest(req.URL) {
		return w.networkFirst(req)
	}
	return w.cacheFirst(req)
}

// IsAPIRequest reports whether u is routed with the network-first policy
func IsAPIRequest(u *url.URL) bool {
	return strings.Contains(u.String(), models.APIPathMarker)
}

func (w *Worker) networkFirst(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	key := req.URL.String()

	resp, err := w.network.Do(req)
	if err == nil {
		if resp.StatusCode != http.StatusOK || !cacheable(req) {
			w.metrics.observe(policyAPI, outcomeNetwork)
			return resp, nil
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil {
			w.put(ctx, key, resp, body)
			resp.Body = io.NopCloser(bytes.NewReader(body))
			resp.ContentLength = int64(len(body))
			w.metrics.observe(policyAPI, outcomeNetwork)
			return resp, nil
		}
		err = readErr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	w.logger.Debug("network request failed, using offline copy", "url", key, "error", err)

	if cacheable(req) {
		if cached, mErr := w.storage.Match(ctx, key); mErr == nil {
			w.metrics.observe(policyAPI, outcomeCacheHit)
			return cached.Response(req), nil
		}
	}

	return w.offlineResponse(req), nil
}

func (w *Worker) offlineResponse(req *http.Request) *http.Response {
	if cacheable(req) && strings.Contains(req.URL.String(), models.EndpointHistory) {
		w.metrics.observe(policyAPI, outcomeFallback)
		body := `{"history":` + history.LoadRaw(w.local) + `}`
		return jsonResponse(req, http.StatusOK, body)
	}

	w.metrics.observe(policyAPI, outcomeOffline)
	return jsonResponse(req, http.StatusServiceUnavailable, `{"error":"`+models.OfflineMessage+`"}`)
}

func (w *Worker) cacheFirst(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	key := req.URL.String()

	if cacheable(req) {
		if cached, err := w.storage.Match(ctx, key); err == nil {
			w.metrics.observe(policyStatic, outcomeCacheHit)
			return cached.Response(req), nil
		}
	}

	resp, err := w.network.Do(req)
	if err == nil {
		w.metrics.observe(policyStatic, outcomeNetwork)
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	root := req.URL.ResolveReference(&url.URL{Path: "/"}).String()
	if cached, mErr := w.storage.Match(ctx, root); mErr == nil {
		w.metrics.observe(policyStatic, outcomeFallback)
		return cached.Response(req), nil
	}

	w.metrics.observe(policyStatic, outcomeFailed)
	return nil, apierrors.NewNetworkError(req.URL.Path, err)
}

// put stores a successful response; storage failures only cost the offline copy
func (w *Worker) put(ctx context.Context, key string, resp *http.Response, body []byte) {
	cache, err := w.storage.Open(ctx, w.cacheName)
	if err != nil {
		w.logger.Warn("failed to open cache", "cache", w.cacheName, "error", err)
		return
	}
	err = cache.Put(ctx, &CachedResponse{
		URL:        key,
		StatusCode: resp.StatusCode,
		Header:     cloneHeader(resp.Header),
		Body:       body,
		StoredAt:   time.Now(),
	})
	if err != nil {
		w.logger.Warn("failed to cache response", "url", key, "error", err)
		return
	}
	w.metrics.cachePut()
}

// cacheable mirrors the platform cache, which only stores and matches GETs
func cacheable(req *http.Request) bool {
	return req.Method == "" || req.Method == http.MethodGet
}

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	entry := &CachedResponse{
		URL:        req.URL.String(),
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
	return entry.Response(req)
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}
