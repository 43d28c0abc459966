package scope

import (
	"github.com/sophialabs/scopecore/internal/domain/trigger"
	"github.com/sophialabs/scopecore/internal/domain/window"
)

// ChannelWindow is one channel's trace for a frame. Levels holds the sample
// values at both ends of every segment, copied out of the ring buffer.
type ChannelWindow struct {
	Channel  int             `json:"channel"`
	Settings ChannelSettings `json:"settings"`
	Trigger  trigger.Result  `json:"trigger"`
	Trace    window.Trace    `json:"trace"`
	Levels   [][2]float64    `json:"levels"`
}

// Frame is a consistent cut of every active channel.
type Frame struct {
	Generation  uint64          `json:"generation"`
	HistorySize int             `json:"history_size"`
	ValidPoints int             `json:"valid_points"`
	WriteCursor int             `json:"write_cursor"`
	Width       float64         `json:"width"`
	Channels    []ChannelWindow `json:"channels"`
}

// Window extracts the trigger-anchored trace of every active channel for a
// drawable area width pixels wide. maxSegments, when positive, bounds the
// number of segments per channel.
func (s *Scope) Window(width float64, maxSegments int) Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := Frame{
		Generation:  s.generation,
		HistorySize: s.historySize,
		ValidPoints: s.validPoints,
		WriteCursor: s.writeCursor,
		Width:       width,
	}
	for i := range s.channels {
		ch := &s.channels[i]
		if !ch.settings.Active || len(ch.buf) == 0 {
			continue
		}
		tr := window.Extract(window.Params{
			HistorySize:     s.historySize,
			ValidPoints:     s.validPoints,
			WriteCursor:     s.writeCursor,
			TriggerIndex:    ch.trig.Index,
			PointsToDisplay: s.display.PointsToDisplay,
			OffsetX:         s.display.TriggerOffsetX,
			Width:           width,
			Reverse:         s.display.Reverse,
			Movement:        s.display.Movement,
			MaxSegments:     maxSegments,
		})
		levels := make([][2]float64, len(tr.Segments))
		for j, seg := range tr.Segments {
			levels[j] = [2]float64{ch.buf[seg.A.Index], ch.buf[seg.B.Index]}
		}
		f.Channels = append(f.Channels, ChannelWindow{
			Channel:  i,
			Settings: ch.settings,
			Trigger:  ch.last,
			Trace:    tr,
			Levels:   levels,
		})
	}
	return f
}

// ChannelStatus is the observable state of one channel.
type ChannelStatus struct {
	Channel  int             `json:"channel"`
	Settings ChannelSettings `json:"settings"`
	Trigger  trigger.Result  `json:"trigger"`
	Locked   bool            `json:"locked"`
	Last     float64         `json:"last"`
	HasLast  bool            `json:"has_last"`
}

// Status summarizes the buffer bookkeeping and trigger state.
type Status struct {
	Generation  uint64          `json:"generation"`
	HistorySize int             `json:"history_size"`
	WriteCursor int             `json:"write_cursor"`
	ValidPoints int             `json:"valid_points"`
	Display     DisplaySettings `json:"display"`
	Channels    []ChannelStatus `json:"channels"`
}

// Status returns a snapshot of the scope.
func (s *Scope) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Generation:  s.generation,
		HistorySize: s.historySize,
		WriteCursor: s.writeCursor,
		ValidPoints: s.validPoints,
		Display:     s.display,
		Channels:    make([]ChannelStatus, len(s.channels)),
	}
	for i := range s.channels {
		ch := &s.channels[i]
		cs := ChannelStatus{
			Channel:  i,
			Settings: ch.settings,
			Trigger:  ch.last,
			Locked:   ch.trig.Locked,
		}
		if s.validPoints > 0 && len(ch.buf) > 0 {
			cs.Last = ch.buf[(s.writeCursor-1+s.historySize)%s.historySize]
			cs.HasLast = true
		}
		st.Channels[i] = cs
	}
	return st
}
