package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Memphis465/nova/internal/api"
	"github.com/Memphis465/nova/internal/chat"
	"github.com/Memphis465/nova/internal/config"
	"github.com/Memphis465/nova/internal/localstore"
	"github.com/Memphis465/nova/internal/sw"
	"github.com/Memphis465/nova/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, m tui.Model, watcher tui.ThemeWatcher) (chat.State, error)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Network reaches the backend. Nil uses the TLS client.
	Network sw.HTTPDoer

	// Store holds the theme and history snapshot. Nil opens the default store.
	Store *localstore.Store

	// Storage backs the offline cache. Nil selects it from the configuration.
	Storage sw.CacheStorage

	// Logger overrides the logger built from the flags.
	Logger *slog.Logger

	// TUI is the terminal user interface.
	TUI TUIInterface
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, m tui.Model, watcher tui.ThemeWatcher) (chat.State, error) {
	return tui.Run(ctx, m, watcher)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI: &DefaultTUI{},
	}
}

// stack is the wired client: every backend request goes through the worker
type stack struct {
	cfg     config.Config
	store   *localstore.Store
	storage sw.CacheStorage
	metrics *sw.Metrics
	worker  *sw.Worker
	client  *api.Client
	logger  *slog.Logger
}

// openStack loads the configuration and wires store, cache, worker and
// client. With register set the worker is installed and activated, which
// is what every page load does.
func (d *Dependencies) openStack(ctx context.Context, logger *slog.Logger, register bool) (*stack, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if d.Logger != nil {
		logger = d.Logger
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store := d.Store
	if store == nil {
		if store, err = localstore.Default(); err != nil {
			return nil, fmt.Errorf("failed to open local store: %w", err)
		}
	}

	storage := d.Storage
	if storage == nil {
		if storage, err = openCacheStorage(cfg); err != nil {
			return nil, err
		}
	}

	network := d.Network
	if network == nil {
		netClient, err := api.NewNetworkClient(cfg.RequestTimeout)
		if err != nil {
			_ = storage.Close()
			return nil, err
		}
		network = netClient
	}

	metrics := sw.NewMetrics()
	worker, err := sw.NewWorker(cfg.BaseURL, network, storage,
		sw.WithCacheName(cfg.CacheVersion),
		sw.WithLocalStorage(store),
		sw.WithMetrics(metrics),
		sw.WithLogger(logger),
	)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	if register {
		if err := worker.Register(ctx); err != nil {
			// The page keeps working uncontrolled when registration fails
			logger.Warn("service worker registration failed", "error", err)
		}
	}

	client, err := api.NewClient(cfg.BaseURL,
		api.WithHTTPClient(worker),
		api.WithSnapshotStore(store),
		api.WithLogger(logger),
	)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	return &stack{
		cfg:     cfg,
		store:   store,
		storage: storage,
		metrics: metrics,
		worker:  worker,
		client:  client,
		logger:  logger,
	}, nil
}

// Close releases the cache storage
func (s *stack) Close() error {
	return s.storage.Close()
}

// theme returns the stored theme, dark when unset
func (s *stack) theme() string {
	return storedTheme(s.store)
}

func openCacheStorage(cfg config.Config) (sw.CacheStorage, error) {
	if cfg.CacheBackend == config.CacheBackendMemory {
		return sw.NewMemoryStorage(cfg.CacheMaxEntries), nil
	}
	path, err := config.GetCachePath()
	if err != nil {
		return nil, err
	}
	storage, err := sw.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline cache: %w", err)
	}
	return storage, nil
}

// newLogger builds the process logger. While the TUI owns the terminal the
// log goes to a file; the returned func closes it.
func newLogger(verbose, toFile bool) (*slog.Logger, func()) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if toFile {
		path, err := config.GetLogPath()
		if err == nil {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err == nil {
				return slog.New(slog.NewTextHandler(f, opts)), func() { _ = f.Close() }
			}
		}
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
}
