package wiring

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/settings"
	inboundhttp "github.com/sophialabs/scopecore/internal/infrastructure/inbound/http"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/device"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/metrics"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/source"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/template"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
	"github.com/sophialabs/scopecore/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	SettingsPath   string // "" = defaults only, nothing persisted
	Source         source.Options
	EventLogSize   int
	RateLimiterTTL time.Duration
	WindowRate     float64 // frames per second per client, 0 = unlimited
	WindowBurst    int
	WarnEvery      time.Duration // minimum spacing of malformed-packet warnings
	Logger         ports.Logger
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger           ports.Logger
	clock            ports.Clock
	scope            *scope.Scope
	store            *services.ProfileStore
	repo             *filesystem.SettingsRepository
	pump             *source.Pump
	server           *inboundhttp.Server
	acquireUC        *usecases.AcquireUseCase
	loadUC           *usecases.LoadSettingsUseCase
	rateLimiterStore *ratelimit.TokenBucketStore
	events           *events.Log
	closeOnce        sync.Once
}

// New constructs all infrastructure components and applies the initial
// settings. Fallible operations (repository, source, settings) run before
// goroutine-starting operations (rate limiter store) to avoid goroutine
// leaks on early failure. The pump is created but not started.
func New(ctx context.Context, p Params) (*Container, error) {
	var repo *filesystem.SettingsRepository
	if p.SettingsPath != "" {
		r, err := filesystem.NewSettingsRepository(p.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create settings repository: %w", err)
		}
		repo = r
	}

	clk := clock.New()
	if p.Source.Clock == nil {
		p.Source.Clock = clk
	}

	sc, err := scope.New(settings.Default().ScopeConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create scope: %w", err)
	}

	src, err := source.Open(ctx, p.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	// Capture files are read-only; everything else takes commands.
	var link io.Writer
	if w, ok := src.(io.Writer); ok && p.Source.Kind != source.KindFile {
		link = w
	}

	eventLog := events.NewLog(p.EventLogSize)
	store := services.NewProfileStore(nil)
	compiler := services.NewCompiler(template.ScalerFactory{}, template.NewRegistry())
	recorder := metrics.Recorder{}
	throttled := logging.NewThrottled(p.Logger, p.WarnEvery, 3)

	var settingsRepo settings.Repository
	if repo != nil {
		settingsRepo = repo
	}
	applyUC := usecases.NewApplySettingsUseCase(sc, compiler, store, settingsRepo, device.NewCommandWriter(link, p.Logger), recorder, clk, p.Logger, eventLog)

	var loadUC *usecases.LoadSettingsUseCase
	if repo != nil {
		loadUC = usecases.NewLoadSettingsUseCase(repo, applyUC, p.Logger)
		_, err = loadUC.Execute(ctx)
	} else {
		_, err = applyUC.Execute(ctx, settings.Default(), false)
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("failed to apply initial settings: %w", err)
	}

	// Start background goroutine only after all fallible ops succeed.
	rateLimiterStore := ratelimit.NewTokenBucketStore(clk, p.RateLimiterTTL)

	acquireUC := usecases.NewAcquireUseCase(sc, store, recorder, clk, throttled, eventLog)
	server := inboundhttp.NewServer(inboundhttp.ServerDeps{
		Scope:   sc,
		Store:   store,
		Events:  eventLog,
		Acquire: acquireUC,
		Window:  usecases.NewRenderWindowUseCase(sc, store, rateLimiterStore, p.WindowRate, p.WindowBurst),
		Readout: usecases.NewReadoutUseCase(sc, store),
		Apply:   applyUC,
		Resize:  usecases.NewResizeUseCase(sc, recorder, clk, p.Logger, eventLog),
		Reload:  loadUC,
		Metrics: metrics.Handler(),
		Logger:  p.Logger,
	})

	return &Container{
		logger:           p.Logger,
		clock:            clk,
		scope:            sc,
		store:            store,
		repo:             repo,
		pump:             source.NewPump(src, p.Logger, 0),
		server:           server,
		acquireUC:        acquireUC,
		loadUC:           loadUC,
		rateLimiterStore: rateLimiterStore,
		events:           eventLog,
	}, nil
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.pump.Stop()
		c.rateLimiterStore.Stop()
	})
}

// RefreshInterval is the acquisition period of the active settings.
func (c *Container) RefreshInterval() time.Duration {
	ms := settings.DefaultRefreshMs
	if p := c.store.Load(); p != nil {
		ms = p.Settings.Acquisition.RefreshMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Clock returns the clock shared by every component.
func (c *Container) Clock() ports.Clock {
	return c.clock
}

// Scope returns the scope aggregate.
func (c *Container) Scope() *scope.Scope {
	return c.scope
}

// Server returns the HTTP API server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// Pump returns the source pump.
func (c *Container) Pump() *source.Pump {
	return c.pump
}

// AcquireUseCase returns the use case run on every refresh tick.
func (c *Container) AcquireUseCase() *usecases.AcquireUseCase {
	return c.acquireUC
}

// LoadSettingsUseCase returns the reload use case, or nil without a settings file.
func (c *Container) LoadSettingsUseCase() *usecases.LoadSettingsUseCase {
	return c.loadUC
}

// SettingsRepository returns the settings file repository, or nil.
func (c *Container) SettingsRepository() *filesystem.SettingsRepository {
	return c.repo
}

// Events returns the event log.
func (c *Container) Events() *events.Log {
	return c.events
}

// RateLimiterStore returns the token bucket store for rate limiting.
func (c *Container) RateLimiterStore() *ratelimit.TokenBucketStore {
	return c.rateLimiterStore
}
