package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/device"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
)

// ApplySettingsUseCase installs a settings document: scope controls, the
// compiled profile, device commands and, optionally, persistence.
type ApplySettingsUseCase struct {
	scope    *scope.Scope
	compiler *services.Compiler
	store    *services.ProfileStore
	repo     settings.Repository
	device   ports.CommandSink
	metrics  ports.Metrics
	clock    ports.Clock
	logger   ports.Logger
	events   *events.Log

	mu sync.Mutex
}

// NewApplySettingsUseCase creates a new use case. repo and dev may be nil.
func NewApplySettingsUseCase(
	sc *scope.Scope,
	compiler *services.Compiler,
	store *services.ProfileStore,
	repo settings.Repository,
	dev ports.CommandSink,
	metrics ports.Metrics,
	clock ports.Clock,
	logger ports.Logger,
	eventLog *events.Log,
) *ApplySettingsUseCase {
	return &ApplySettingsUseCase{
		scope:    sc,
		compiler: compiler,
		store:    store,
		repo:     repo,
		device:   dev,
		metrics:  metrics,
		clock:    clock,
		logger:   logger,
		events:   eventLog,
	}
}

// ApplyResult reports what an apply changed.
type ApplyResult struct {
	Settings settings.Settings
	Resized  bool
	Commands []string
}

// Execute compiles s and applies it. Nothing is changed when s does not
// compile. When persist is set the document is saved after it is applied.
func (uc *ApplySettingsUseCase) Execute(ctx context.Context, s settings.Settings, persist bool) (ApplyResult, error) {
	p, err := uc.compiler.Compile(s)
	if err != nil {
		return ApplyResult{}, err
	}
	n := uc.scope.ChannelCount()
	if len(p.Settings.Channels) > n {
		return ApplyResult{}, fmt.Errorf("%w: %d channels, scope has %d", scope.ErrInvalidConfig, len(p.Settings.Channels), n)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	for i := range n {
		var cs scope.ChannelSettings
		if i < len(p.Settings.Channels) {
			cs = p.Settings.Channels[i].ChannelSettings
		}
		if err := uc.scope.SetChannel(i, cs); err != nil {
			return ApplyResult{}, err
		}
	}
	resized, err := uc.scope.SetDisplay(p.Settings.Display)
	if err != nil {
		return ApplyResult{}, err
	}
	prev := uc.store.Swap(p)

	res := ApplyResult{Settings: p.Settings, Resized: resized}
	if resized {
		uc.metrics.Resized()
		st := uc.scope.Status()
		uc.record(events.KindResize, fmt.Sprintf("history size %d", st.HistorySize))
		uc.logger.Info("buffers resized", "history_size", st.HistorySize)
	}
	res.Commands = uc.sendCommands(ctx, prev, p)
	uc.record(events.KindSettings, "applied")

	if persist && uc.repo != nil {
		if err := uc.repo.Save(ctx, p.Settings); err != nil {
			return res, fmt.Errorf("failed to persist settings: %w", err)
		}
	}
	return res, nil
}

// sendCommands tells the device about acquisition changes. Failures are
// logged: the host-side settings stay applied.
func (uc *ApplySettingsUseCase) sendCommands(ctx context.Context, prev, next *services.Profile) []string {
	if uc.device == nil {
		return nil
	}
	type command struct {
		name  string
		value int
	}
	var cmds []command

	acq := next.Settings.Acquisition
	if prev == nil || prev.Settings.Acquisition.RefreshMs != acq.RefreshMs {
		cmds = append(cmds, command{device.CmdRate, acq.RefreshMs})
	}
	if prev == nil || prev.Settings.Acquisition.TestSignal != acq.TestSignal {
		cmds = append(cmds, command{device.CmdTestSignal, boolInt(acq.TestSignal)})
	}
	if prev != nil {
		for i, ch := range next.Settings.Channels {
			if i < len(prev.Settings.Channels) && prev.Settings.Channels[i].TriggerEdge != ch.TriggerEdge {
				cmds = append(cmds, command{device.CmdTriggerEdge, int(ch.TriggerEdge)})
			}
		}
	}

	var sent []string
	for _, c := range cmds {
		if err := uc.device.Send(ctx, c.name, c.value); err != nil {
			uc.logger.Warn("device command failed", "command", c.name, "value", c.value, "error", err)
			continue
		}
		sent = append(sent, fmt.Sprintf("%s:%d", c.name, c.value))
	}
	return sent
}

func (uc *ApplySettingsUseCase) record(kind events.Kind, detail string) {
	if uc.events == nil {
		return
	}
	uc.events.Record(events.Event{Timestamp: uc.clock.Now(), Kind: kind, Channel: -1, Detail: detail})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
