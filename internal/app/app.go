package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/source"
	"github.com/sophialabs/scopecore/internal/infrastructure/wiring"
)

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	cfg        Config
	container  *wiring.Container
	httpServer *http.Server
}

// New constructs the application by creating a logger, wiring infrastructure
// components via the container, and setting up the HTTP server.
func New(cfg Config) (*App, error) {
	level := parseLogLevel(cfg.LogLevel)
	logger := logging.New(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	container, err := wiring.New(context.Background(), wiring.Params{
		SettingsPath: cfg.SettingsPath,
		Source: source.Options{
			Kind:           cfg.SourceKind,
			Addr:           cfg.SourceAddr,
			DialTimeout:    cfg.DialTimeout,
			PacketsPerTick: cfg.PacketsPerTick,
			Seed:           uint64(time.Now().UnixNano()),
		},
		EventLogSize:   cfg.EventLogSize,
		RateLimiterTTL: cfg.RateLimiterTTL,
		WindowRate:     cfg.WindowRate,
		WindowBurst:    cfg.WindowBurst,
		WarnEvery:      cfg.WarnEvery,
		Logger:         logger.With("component", "scope"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      container.Server(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		container:  container,
		httpServer: httpServer,
	}, nil
}

// Run executes the full application lifecycle: start the source pump and the
// acquisition loop, watch the settings file, serve HTTP, and handle graceful
// shutdown on SIGINT/SIGTERM or context cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.container.Close()

	logger := a.container.Logger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := a.setupWatcher()
	if watcher != nil {
		defer watcher.Stop()
	}

	a.container.Pump().Start()
	acqDone := make(chan error, 1)
	go func() {
		acqDone <- a.acquire(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting scope server", "addr", a.httpServer.Addr, "source", a.cfg.SourceKind)
		ln, err := listen(a.httpServer.Addr, a.cfg.MaxConnections)
		if err != nil {
			serverErr <- err
			return
		}
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	acqFinished := false
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	case err := <-acqDone:
		acqFinished = true
		if err != nil {
			runErr = fmt.Errorf("acquisition error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}
	stop()
	if !acqFinished {
		if err := <-acqDone; err != nil && runErr == nil {
			runErr = fmt.Errorf("acquisition error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return runErr
}

// acquire drains the pump once per refresh tick until ctx is done. The end
// of the source is reported once; the loop keeps running so the API stays
// up with the last captured frame.
func (a *App) acquire(ctx context.Context) error {
	c := a.container
	pump := c.Pump()
	uc := c.AcquireUseCase()
	logger := c.Logger()
	ended := false

	return clock.Loop(ctx, c.Clock(), c.RefreshInterval, func(now time.Time) {
		uc.Execute(ctx, pump.Drain(0))
		if ended || !pump.Done() {
			return
		}
		ended = true
		detail := "end of stream"
		if err := pump.Err(); err != nil {
			detail = err.Error()
			logger.Error("source stopped", "error", err)
		} else {
			logger.Info("source reached end of stream")
		}
		c.Events().Record(events.Event{Timestamp: now, Kind: events.KindSource, Channel: -1, Detail: detail})
	})
}

func (a *App) setupWatcher() *filesystem.Watcher {
	logger := a.container.Logger()
	repo := a.container.SettingsRepository()
	loadUC := a.container.LoadSettingsUseCase()
	if repo == nil || loadUC == nil {
		return nil
	}

	watcher, err := filesystem.NewWatcher(repo.Path(), a.cfg.WatcherDebounce, logger, func() {
		if _, err := loadUC.Execute(context.Background()); err != nil {
			logger.Error("hot reload failed", "error", err)
			return
		}
		logger.Info("hot reload complete")
	})
	if err != nil {
		logger.Warn("file watcher not available", "error", err)
		return nil
	}

	watcher.Start()
	logger.Info("file watcher started", "path", repo.Path())
	return watcher
}

// listen opens the API listener. With limit > 0 at most limit connections
// are served at once; further clients wait in the accept queue.
func listen(addr string, limit int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}
	return ln, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
