package scope

import (
	"errors"

	"github.com/sophialabs/scopecore/internal/domain/trigger"
)

// ErrInvalidConfig reports a configuration the scope cannot run with, such
// as a non-positive buffer size.
var ErrInvalidConfig = errors.New("invalid scope configuration")

const (
	DefaultChannels         = 4
	DefaultPointsToDisplay  = 500
	DefaultFixedHistorySize = 10000
	DefaultLevelScale       = 550

	// DefaultMaxHistorySize caps every buffer allocation; it matches the
	// largest point count the control panel offers.
	DefaultMaxHistorySize = DefaultFixedHistorySize
)

// ChannelSettings are the operator controls for one channel.
type ChannelSettings struct {
	Active      bool    `json:"active"`
	ScaleY      float64 `json:"scale_y"`
	OffsetY     float64 `json:"offset_y"`
	SignalLevel float64 `json:"signal_level"`

	// TriggerLevel is normalized (roughly -1..1) and multiplied by the
	// scope's level scale to get buffer units. TriggerHysteresis is already
	// in buffer units.
	TriggerLevel      float64      `json:"trigger_level"`
	TriggerHysteresis float64      `json:"trigger_hysteresis"`
	TriggerEdge       trigger.Edge `json:"trigger_edge"`
	TriggerActive     bool         `json:"trigger_active"`
}

// DisplaySettings control buffer sizing and the trigger-relative window.
type DisplaySettings struct {
	PointsToDisplay int     `json:"points_to_display"`
	DynamicBuffer   bool    `json:"dynamic_buffer"`
	TriggerOffsetX  float64 `json:"trigger_offset_x"`
	Reverse         bool    `json:"reverse"`
	Movement        bool    `json:"movement"`
}

// Config is everything needed to build a Scope.
type Config struct {
	Channels         []ChannelSettings
	Display          DisplaySettings
	FixedHistorySize int
	MaxHistorySize   int
	LevelScale       float64
}

// DefaultConfig returns four active channels stacked down the screen, with
// only the third channel's trigger armed.
func DefaultConfig() Config {
	offsets := []float64{-200, -100, 0, 125}
	levels := []float64{0.25, 0.25, 0.25, 0.30}

	chans := make([]ChannelSettings, DefaultChannels)
	for i := range chans {
		chans[i] = ChannelSettings{
			Active:            true,
			ScaleY:            1,
			OffsetY:           offsets[i],
			SignalLevel:       1,
			TriggerLevel:      levels[i],
			TriggerHysteresis: 0.25,
			TriggerEdge:       trigger.Rising,
			TriggerActive:     i == 2,
		}
	}

	return Config{
		Channels: chans,
		Display: DisplaySettings{
			PointsToDisplay: DefaultPointsToDisplay,
			DynamicBuffer:   true,
			TriggerOffsetX:  100,
		},
		FixedHistorySize: DefaultFixedHistorySize,
		MaxHistorySize:   DefaultMaxHistorySize,
		LevelScale:       DefaultLevelScale,
	}
}

// historySizeFor is the buffer capacity implied by d.
func (c Config) historySizeFor(d DisplaySettings) int {
	if d.DynamicBuffer {
		return d.PointsToDisplay
	}
	return c.FixedHistorySize
}
