package usecases

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/trigger"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
)

// AcquireResult summarizes one acquisition tick.
type AcquireResult struct {
	Packets  int
	Rejected int
	Skipped  int
	Triggers []trigger.Result
}

// AcquireUseCase frames raw device bytes, scales every decoded packet and
// hands the whole tick to the scope, which ingests it and runs the trigger
// engine under one lock.
type AcquireUseCase struct {
	scope   *scope.Scope
	store   *services.ProfileStore
	metrics ports.Metrics
	clock   ports.Clock
	logger  ports.Logger
	events  *events.Log

	mu     sync.Mutex
	framer *packet.Framer
	stats  packet.Stats
	found  []bool
	gen    uint64
}

// NewAcquireUseCase creates a new use case. logger should be throttled:
// a noisy link produces a warning per malformed frame.
func NewAcquireUseCase(
	sc *scope.Scope,
	store *services.ProfileStore,
	metrics ports.Metrics,
	clock ports.Clock,
	logger ports.Logger,
	eventLog *events.Log,
) *AcquireUseCase {
	return &AcquireUseCase{
		scope:   sc,
		store:   store,
		metrics: metrics,
		clock:   clock,
		logger:  logger,
		events:  eventLog,
		framer:  packet.NewFramer(),
		found:   make([]bool, sc.ChannelCount()),
		gen:     sc.Generation(),
	}
}

// Execute processes data, which may be empty or end mid-packet.
func (uc *AcquireUseCase) Execute(_ context.Context, data []byte) AcquireResult {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	var res AcquireResult
	profile := uc.store.Load()
	packets := uc.framer.Feed(data)
	batch := make([][]float64, len(packets))
	for i, v := range packets {
		batch[i] = uc.scale(profile, v)
	}
	res.Triggers = uc.scope.IngestAndUpdate(batch)

	st := uc.framer.Stats()
	res.Packets = len(packets)
	res.Rejected = int(st.Rejected - uc.stats.Rejected)
	res.Skipped = int(st.Skipped - uc.stats.Skipped)
	uc.stats = st

	uc.metrics.PacketsDecoded(res.Packets)
	uc.metrics.PacketsRejected(res.Rejected)
	uc.metrics.NoiseSkipped(res.Skipped)
	if res.Rejected > 0 {
		uc.logger.Warn("malformed packets dropped", "count", res.Rejected)
		uc.record(events.KindMalformed, -1, 0, fmt.Sprintf("%d packets", res.Rejected))
	}

	uc.observe(res.Triggers)
	return res
}

// Stats returns the framer counters since startup.
func (uc *AcquireUseCase) Stats() packet.Stats {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.stats
}

// Reset drops a partially collected packet, for when the source reconnects.
func (uc *AcquireUseCase) Reset() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.framer.Reset()
}

// scale converts one packet to buffer units. A channel whose scaler fails
// gets NaN, which the scope replaces with that channel's previous sample.
func (uc *AcquireUseCase) scale(p *services.Profile, v packet.Values) []float64 {
	out := make([]float64, len(v))
	for i, raw := range v {
		if p == nil || i >= len(p.Scalers) {
			continue
		}
		f, err := p.Scalers[i].Scale(raw)
		if err != nil {
			uc.logger.Warn("scale failed", "channel", i, "raw", raw, "error", err)
			out[i] = math.NaN()
			continue
		}
		out[i] = f
	}
	return out
}

// observe emits lock transitions and publishes the trigger gauges. A resize
// clears every lock without reporting it as lost.
func (uc *AcquireUseCase) observe(results []trigger.Result) {
	st := uc.scope.Status()
	if st.Generation != uc.gen {
		uc.gen = st.Generation
		clear(uc.found)
	}
	for i, r := range results {
		if i >= len(uc.found) {
			break
		}
		switch {
		case r.Found && !uc.found[i]:
			uc.record(events.KindTriggerLocked, i, r.Index, "")
			uc.logger.Debug("trigger locked", "channel", i, "index", r.Index)
		case !r.Found && uc.found[i]:
			uc.record(events.KindTriggerLost, i, 0, "")
			uc.logger.Debug("trigger lost", "channel", i)
		}
		uc.found[i] = r.Found
		locked := i < len(st.Channels) && st.Channels[i].Locked
		uc.metrics.Trigger(i, r.Found, locked)
	}
	uc.metrics.Buffer(st.HistorySize, st.ValidPoints)
}

func (uc *AcquireUseCase) record(kind events.Kind, channel, index int, detail string) {
	if uc.events == nil {
		return
	}
	uc.events.Record(events.Event{
		Timestamp: uc.clock.Now(),
		Kind:      kind,
		Channel:   channel,
		Index:     index,
		Detail:    detail,
	})
}
