// Package scope is the oscilloscope aggregate. It exclusively owns every
// channel's ring buffer; callers only reach the samples through its methods,
// which serialize the single writer (ingestion, resize, trigger updates)
// against readers (window extraction, status).
package scope

import (
	"fmt"
	"math"
	"sync"

	"github.com/sophialabs/scopecore/internal/domain/trigger"
)

type channel struct {
	settings ChannelSettings
	buf      []float64
	trig     trigger.State
	last     trigger.Result
}

// Scope holds per-channel ring buffers sharing one write cursor.
type Scope struct {
	mu sync.RWMutex

	channels    []channel
	historySize int
	writeCursor int
	validPoints int
	generation  uint64

	display    DisplaySettings
	fixedSize  int
	maxSize    int
	levelScale float64
}

// New builds a scope and allocates its buffers.
func New(cfg Config) (*Scope, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidConfig)
	}
	if cfg.FixedHistorySize <= 0 {
		cfg.FixedHistorySize = DefaultFixedHistorySize
	}
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = DefaultMaxHistorySize
	}
	if cfg.FixedHistorySize > cfg.MaxHistorySize {
		return nil, fmt.Errorf("%w: fixed history size %d above maximum %d", ErrInvalidConfig, cfg.FixedHistorySize, cfg.MaxHistorySize)
	}
	if cfg.LevelScale == 0 {
		cfg.LevelScale = DefaultLevelScale
	}
	if cfg.Display.PointsToDisplay <= 0 {
		return nil, fmt.Errorf("%w: points to display %d", ErrInvalidConfig, cfg.Display.PointsToDisplay)
	}

	s := &Scope{
		channels:   make([]channel, len(cfg.Channels)),
		display:    cfg.Display,
		fixedSize:  cfg.FixedHistorySize,
		maxSize:    cfg.MaxHistorySize,
		levelScale: cfg.LevelScale,
	}
	for i, cs := range cfg.Channels {
		s.channels[i].settings = cs
	}
	if err := s.Resize(cfg.historySizeFor(cfg.Display)); err != nil {
		return nil, err
	}
	return s, nil
}

// Resize reallocates every channel's buffer with n zeroed slots and resets
// the cursor, the valid count and all trigger state. Windows computed
// before the call carry an older Generation and must be discarded. n must
// lie in [1, MaxHistorySize].
func (s *Scope) Resize(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resizeLocked(n)
}

func (s *Scope) resizeLocked(n int) error {
	if n <= 0 || n > s.maxSize {
		return fmt.Errorf("%w: history size %d (want 1..%d)", ErrInvalidConfig, n, s.maxSize)
	}
	for i := range s.channels {
		ch := &s.channels[i]
		ch.buf = make([]float64, n)
		ch.trig.Reset()
		ch.last = trigger.Result{}
	}
	s.historySize = n
	s.writeCursor = 0
	s.validPoints = 0
	s.generation++
	return nil
}

// SetDisplay applies new display settings, resizing the buffers when the
// dynamic-buffer mode toggles or when the point count changes while it is
// on. It reports whether a resize happened.
func (s *Scope) SetDisplay(d DisplaySettings) (bool, error) {
	if d.PointsToDisplay <= 0 {
		return false, fmt.Errorf("%w: points to display %d", ErrInvalidConfig, d.PointsToDisplay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.display
	s.display = d

	needResize := prev.DynamicBuffer != d.DynamicBuffer ||
		(d.DynamicBuffer && prev.PointsToDisplay != d.PointsToDisplay)
	if !needResize {
		return false, nil
	}

	size := s.fixedSize
	if d.DynamicBuffer {
		size = d.PointsToDisplay
	}
	if err := s.resizeLocked(size); err != nil {
		s.display = prev
		return false, err
	}
	return true, nil
}

// MaxHistorySize is the largest buffer Resize accepts.
func (s *Scope) MaxHistorySize() int {
	return s.maxSize
}

// Display returns the current display settings.
func (s *Scope) Display() DisplaySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// ChannelCount is fixed for the life of the scope.
func (s *Scope) ChannelCount() int {
	return len(s.channels)
}

// Channel returns the settings of channel i.
func (s *Scope) Channel(i int) (ChannelSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.channels) {
		return ChannelSettings{}, fmt.Errorf("%w: channel %d", ErrInvalidConfig, i)
	}
	return s.channels[i].settings, nil
}

// SetChannel replaces the settings of channel i. Trigger state is kept;
// the next UpdateTriggers re-evaluates it against the new condition.
func (s *Scope) SetChannel(i int, cs ChannelSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.channels) {
		return fmt.Errorf("%w: channel %d", ErrInvalidConfig, i)
	}
	s.channels[i].settings = cs
	return nil
}

// Ingest writes one packet's worth of already-scaled values, one per
// channel, at the write cursor and then advances it. Inactive channels and
// values beyond the channel count are skipped. A non-finite value marks a
// missing sample: the channel's previous sample is repeated in its place
// (zero on an empty buffer) so it cannot fake an edge. The whole packet is
// written under one lock, so readers never see part of it.
func (s *Scope) Ingest(values []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingestLocked(values)
}

// UpdateTriggers runs the trigger engine once for every channel and
// returns the per-channel results. Channels that are inactive or have
// their trigger disabled are cold-reset and report no trigger.
func (s *Scope) UpdateTriggers() []trigger.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTriggersLocked()
}

// IngestAndUpdate ingests a batch of packets and runs the trigger engine
// under a single write lock, so readers see either none of the tick or
// all of it together with its trigger indexes.
func (s *Scope) IngestAndUpdate(batch [][]float64) []trigger.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, values := range batch {
		s.ingestLocked(values)
	}
	return s.updateTriggersLocked()
}

func (s *Scope) ingestLocked(values []float64) {
	if s.historySize == 0 {
		return
	}
	prev := (s.writeCursor + s.historySize - 1) % s.historySize
	for i := range s.channels {
		ch := &s.channels[i]
		if !ch.settings.Active || len(ch.buf) == 0 || i >= len(values) {
			continue
		}
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
			if s.validPoints > 0 {
				v = ch.buf[prev]
			}
		}
		ch.buf[s.writeCursor] = v
	}
	s.writeCursor = (s.writeCursor + 1) % s.historySize
	if s.validPoints < s.historySize {
		s.validPoints++
	}
}

func (s *Scope) updateTriggersLocked() []trigger.Result {
	out := make([]trigger.Result, len(s.channels))
	for i := range s.channels {
		ch := &s.channels[i]
		if !ch.settings.Active || !ch.settings.TriggerActive || len(ch.buf) == 0 {
			ch.trig.Reset()
			ch.last = trigger.Result{}
			continue
		}
		cfg := trigger.Config{
			Level:      ch.settings.TriggerLevel * s.levelScale,
			Hysteresis: ch.settings.TriggerHysteresis,
			Edge:       ch.settings.TriggerEdge,
		}
		ch.last = trigger.Update(ch.buf, cfg, &ch.trig, s.writeCursor, s.validPoints)
		out[i] = ch.last
	}
	return out
}

// Generation changes on every resize.
func (s *Scope) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
