// Package settings is the operator-facing configuration document: per-channel
// controls, display controls and acquisition parameters, as persisted to disk
// and exchanged over the API.
package settings

import (
	"fmt"
	"math"
	"slices"

	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/trigger"
)

const (
	MinRefreshMs     = 5
	MaxRefreshMs     = 55
	DefaultRefreshMs = 20

	// DefaultReadout renders one "Ch1: 412" label per active channel.
	DefaultReadout = `{% for ch in channels %}{% if ch.Active %}{{ ch.Name }}: {{ ch.Value|floatformat:0 }}{% if ch.Triggered %} T{% endif %}
{% endif %}{% endfor %}`
)

// Channel extends the scope controls with presentation and scaling.
type Channel struct {
	scope.ChannelSettings

	Name string `json:"name"`
	// Scale is an optional expression over raw, gain and offset converting
	// an ADC count to buffer units. Empty selects the linear default.
	Scale string `json:"scale,omitempty"`
}

// Acquisition controls the device link.
type Acquisition struct {
	RefreshMs  int  `json:"refresh_ms"`
	TestSignal bool `json:"test_signal"`
}

// Settings is the whole document.
type Settings struct {
	Channels    []Channel             `json:"channels"`
	Display     scope.DisplaySettings `json:"display"`
	Acquisition Acquisition           `json:"acquisition"`
	Readout     string                `json:"readout,omitempty"`
}

// Default mirrors the power-on state of the instrument.
func Default() Settings {
	sc := scope.DefaultConfig()
	chans := make([]Channel, len(sc.Channels))
	for i, cs := range sc.Channels {
		chans[i] = Channel{ChannelSettings: cs, Name: fmt.Sprintf("Ch%d", i+1)}
	}
	return Settings{
		Channels:    chans,
		Display:     sc.Display,
		Acquisition: Acquisition{RefreshMs: DefaultRefreshMs},
		Readout:     DefaultReadout,
	}
}

// Validate rejects documents the scope cannot run with.
func (s Settings) Validate() error {
	if n := len(s.Channels); n == 0 || n > packet.Channels {
		return fmt.Errorf("%w: %d channels (want 1..%d)", scope.ErrInvalidConfig, n, packet.Channels)
	}
	if s.Display.PointsToDisplay <= 0 {
		return fmt.Errorf("%w: points to display %d", scope.ErrInvalidConfig, s.Display.PointsToDisplay)
	}
	if s.Display.DynamicBuffer && s.Display.PointsToDisplay > scope.DefaultMaxHistorySize {
		return fmt.Errorf("%w: points to display %d above %d", scope.ErrInvalidConfig, s.Display.PointsToDisplay, scope.DefaultMaxHistorySize)
	}
	if !finite(s.Display.TriggerOffsetX) || s.Display.TriggerOffsetX < 0 {
		return fmt.Errorf("%w: trigger offset %v", scope.ErrInvalidConfig, s.Display.TriggerOffsetX)
	}
	for i, ch := range s.Channels {
		for _, f := range []struct {
			name string
			v    float64
		}{
			{"scale_y", ch.ScaleY},
			{"offset_y", ch.OffsetY},
			{"signal_level", ch.SignalLevel},
			{"trigger_level", ch.TriggerLevel},
			{"trigger_hysteresis", ch.TriggerHysteresis},
		} {
			if !finite(f.v) {
				return fmt.Errorf("%w: channel %d %s %v", scope.ErrInvalidConfig, i, f.name, f.v)
			}
		}
		if ch.TriggerHysteresis < 0 {
			return fmt.Errorf("%w: channel %d hysteresis %v", scope.ErrInvalidConfig, i, ch.TriggerHysteresis)
		}
		if ch.TriggerEdge > trigger.Any {
			return fmt.Errorf("%w: channel %d edge %d", scope.ErrInvalidConfig, i, ch.TriggerEdge)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Normalize fills zero values with defaults and snaps the refresh rate.
func (s Settings) Normalize() Settings {
	s.Channels = slices.Clone(s.Channels)
	for i := range s.Channels {
		if s.Channels[i].Name == "" {
			s.Channels[i].Name = fmt.Sprintf("Ch%d", i+1)
		}
	}
	s.Acquisition.RefreshMs = SnapRefresh(s.Acquisition.RefreshMs)
	if s.Readout == "" {
		s.Readout = DefaultReadout
	}
	return s
}

// ScopeConfig projects the document onto the scope aggregate.
func (s Settings) ScopeConfig() scope.Config {
	chans := make([]scope.ChannelSettings, len(s.Channels))
	for i, ch := range s.Channels {
		chans[i] = ch.ChannelSettings
	}
	return scope.Config{
		Channels:         chans,
		Display:          s.Display,
		FixedHistorySize: scope.DefaultFixedHistorySize,
		MaxHistorySize:   scope.DefaultMaxHistorySize,
		LevelScale:       scope.DefaultLevelScale,
	}
}

// SnapRefresh rounds ms to the nearest multiple of 5 within the supported
// range. Zero or negative selects the default.
func SnapRefresh(ms int) int {
	if ms <= 0 {
		return DefaultRefreshMs
	}
	ms = (ms + 2) / 5 * 5
	return max(MinRefreshMs, min(ms, MaxRefreshMs))
}
