// Package proxy exposes the offline worker over HTTP so a regular browser
// page gets the same network-first and cache-first routing as the CLI.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Memphis465/nova/internal/models"
	"github.com/Memphis465/nova/internal/sw"
)

// Reserved paths served by the proxy itself
const (
	PathHealth  = "/_nova/health"
	PathMetrics = "/_nova/metrics"
)

const (
	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 5 * time.Second
)

// hopHeaders are connection-level headers that are never forwarded
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Worker routes forwarded requests; *sw.Worker satisfies it
type Worker interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
	State() sw.State
	CacheName() string
}

// Config configures the proxy server
type Config struct {
	Listen         string
	AllowedOrigins []string
	Debug          bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the default proxy configuration
func DefaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:8787",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
	}
}

// Server forwards every request through the worker to the backend
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	backend    *url.URL
	worker     Worker
	metrics    *sw.Metrics
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a proxy for the backend at backendURL
func NewServer(cfg Config, backendURL string, worker Worker, metrics *sw.Metrics, logger *slog.Logger) (*Server, error) {
	backend, err := url.Parse(strings.TrimRight(backendURL, "/"))
	if err != nil || backend.Scheme == "" || backend.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", backendURL)
	}
	if worker == nil {
		return nil, fmt.Errorf("worker is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine:    engine,
		backend:   backend,
		worker:    worker,
		metrics:   metrics,
		logger:    logger,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET(PathHealth, s.handleHealth)
	if registry := s.metrics.Registry(); registry != nil {
		s.engine.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	s.engine.NoRoute(s.forward)
}

// Handler returns the HTTP handler of the proxy
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("proxy listening", "addr", s.httpServer.Addr, "backend", s.backend.String())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"worker":  s.worker.State().String(),
		"cache":   s.worker.CacheName(),
		"backend": s.backend.String(),
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// forward relays the request through the worker and copies the response back
func (s *Server) forward(c *gin.Context) {
	req, err := s.outgoing(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.worker.Do(req)
	if err != nil {
		if c.Request.Context().Err() != nil {
			c.Abort()
			return
		}
		s.logger.Warn("forward failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": models.OfflineMessage})
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	for key, values := range resp.Header {
		if isHopHeader(key) || strings.EqualFold(key, "Content-Length") {
			continue
		}
		for _, v := range values {
			header.Add(key, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		s.logger.Debug("response copy interrupted", "path", c.Request.URL.Path, "error", err)
	}
}

// outgoing builds the backend request for the incoming one
func (s *Server) outgoing(c *gin.Context) (*fhttp.Request, error) {
	in := c.Request
	target := s.backend.ResolveReference(&url.URL{Path: in.URL.Path, RawQuery: in.URL.RawQuery})

	var body io.Reader
	if in.Body != nil && in.Method != http.MethodGet && in.Method != http.MethodHead {
		data, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := fhttp.NewRequestWithContext(in.Context(), in.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for key, values := range in.Header {
		if isHopHeader(key) || strings.EqualFold(key, "Host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

func isHopHeader(key string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(h, key) {
			return true
		}
	}
	return false
}

// requestID tags every request with an id, reusing the caller's when present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("proxy request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}
