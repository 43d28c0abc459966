package filesystem

import (
	"fmt"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/domain/trigger"
)

// yamlSettings is the on-disk form of settings.Settings. Pointer fields
// distinguish "absent" from zero so a partial file overlays the defaults.
type yamlSettings struct {
	Channels    []yamlChannel    `yaml:"channels,omitempty"`
	Display     *yamlDisplay     `yaml:"display,omitempty"`
	Acquisition *yamlAcquisition `yaml:"acquisition,omitempty"`
	Readout     string           `yaml:"readout,omitempty"`
}

type yamlChannel struct {
	Name        string   `yaml:"name,omitempty"`
	Active      *bool    `yaml:"active,omitempty"`
	ScaleY      *float64 `yaml:"scale_y,omitempty"`
	OffsetY     *float64 `yaml:"offset_y,omitempty"`
	SignalLevel *float64 `yaml:"signal_level,omitempty"`
	Scale       string   `yaml:"scale,omitempty"`

	Trigger *yamlTrigger `yaml:"trigger,omitempty"`
}

type yamlTrigger struct {
	Active     *bool    `yaml:"active,omitempty"`
	Level      *float64 `yaml:"level,omitempty"`
	Hysteresis *float64 `yaml:"hysteresis,omitempty"`
	Edge       string   `yaml:"edge,omitempty"`
}

type yamlDisplay struct {
	PointsToDisplay *int     `yaml:"points_to_display,omitempty"`
	DynamicBuffer   *bool    `yaml:"dynamic_buffer,omitempty"`
	TriggerOffsetX  *float64 `yaml:"trigger_offset_x,omitempty"`
	Reverse         *bool    `yaml:"reverse,omitempty"`
	Movement        *bool    `yaml:"movement,omitempty"`
}

type yamlAcquisition struct {
	RefreshMs  *int  `yaml:"refresh_ms,omitempty"`
	TestSignal *bool `yaml:"test_signal,omitempty"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// apply overlays y onto base, which is normally settings.Default(). A
// channel list replaces the default one entry by entry; entries beyond the
// defaults start from the last default channel.
func (y yamlSettings) apply(base settings.Settings) (settings.Settings, error) {
	out := base
	if len(y.Channels) > 0 {
		out.Channels = make([]settings.Channel, len(y.Channels))
		for i, yc := range y.Channels {
			ch := base.Channels[min(i, len(base.Channels)-1)]
			ch.Name = ""
			if err := yc.apply(&ch); err != nil {
				return settings.Settings{}, fmt.Errorf("channel %d: %w", i, err)
			}
			out.Channels[i] = ch
		}
	}
	if d := y.Display; d != nil {
		set(&out.Display.PointsToDisplay, d.PointsToDisplay)
		set(&out.Display.DynamicBuffer, d.DynamicBuffer)
		set(&out.Display.TriggerOffsetX, d.TriggerOffsetX)
		set(&out.Display.Reverse, d.Reverse)
		set(&out.Display.Movement, d.Movement)
	}
	if a := y.Acquisition; a != nil {
		set(&out.Acquisition.RefreshMs, a.RefreshMs)
		set(&out.Acquisition.TestSignal, a.TestSignal)
	}
	if y.Readout != "" {
		out.Readout = y.Readout
	}
	return out.Normalize(), nil
}

func (y yamlChannel) apply(ch *settings.Channel) error {
	ch.Name = y.Name
	ch.Scale = y.Scale
	set(&ch.Active, y.Active)
	set(&ch.ScaleY, y.ScaleY)
	set(&ch.OffsetY, y.OffsetY)
	set(&ch.SignalLevel, y.SignalLevel)
	if t := y.Trigger; t != nil {
		set(&ch.TriggerActive, t.Active)
		set(&ch.TriggerLevel, t.Level)
		set(&ch.TriggerHysteresis, t.Hysteresis)
		if t.Edge != "" {
			e, err := trigger.ParseEdge(t.Edge)
			if err != nil {
				return err
			}
			ch.TriggerEdge = e
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func toYAML(s settings.Settings) yamlSettings {
	y := yamlSettings{
		Channels: make([]yamlChannel, len(s.Channels)),
		Display: &yamlDisplay{
			PointsToDisplay: ptr(s.Display.PointsToDisplay),
			DynamicBuffer:   ptr(s.Display.DynamicBuffer),
			TriggerOffsetX:  ptr(s.Display.TriggerOffsetX),
			Reverse:         ptr(s.Display.Reverse),
			Movement:        ptr(s.Display.Movement),
		},
		Acquisition: &yamlAcquisition{
			RefreshMs:  ptr(s.Acquisition.RefreshMs),
			TestSignal: ptr(s.Acquisition.TestSignal),
		},
	}
	if s.Readout != settings.DefaultReadout {
		y.Readout = s.Readout
	}
	for i, ch := range s.Channels {
		y.Channels[i] = yamlChannel{
			Name:        ch.Name,
			Active:      ptr(ch.Active),
			ScaleY:      ptr(ch.ScaleY),
			OffsetY:     ptr(ch.OffsetY),
			SignalLevel: ptr(ch.SignalLevel),
			Scale:       ch.Scale,
			Trigger: &yamlTrigger{
				Active:     ptr(ch.TriggerActive),
				Level:      ptr(ch.TriggerLevel),
				Hysteresis: ptr(ch.TriggerHysteresis),
				Edge:       ch.TriggerEdge.String(),
			},
		}
	}
	return y
}
