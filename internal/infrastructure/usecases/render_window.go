package usecases

import (
	"context"
	"errors"
	"math"

	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/domain/trigger"
	"github.com/sophialabs/scopecore/internal/domain/window"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
)

// DefaultWidth is the drawable width used when a request names none.
const DefaultWidth = 650.0

// ErrRateLimited is returned when a client asks for frames too often.
var ErrRateLimited = errors.New("rate limited")

// WindowRequest asks for one frame.
type WindowRequest struct {
	Width       float64
	MaxSegments int
	Client      string
}

// Line is one trace segment in screen coordinates.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// ChannelView is one channel's trace ready to draw.
type ChannelView struct {
	Channel int            `json:"channel"`
	Name    string         `json:"name"`
	Trigger trigger.Result `json:"trigger"`
	Layout  window.Layout  `json:"layout"`
	Lines   []Line         `json:"lines"`
}

// WindowView is a frame of every active channel.
type WindowView struct {
	Generation  uint64        `json:"generation"`
	HistorySize int           `json:"history_size"`
	ValidPoints int           `json:"valid_points"`
	Width       float64       `json:"width"`
	Channels    []ChannelView `json:"channels"`
}

// RenderWindowUseCase extracts a frame and maps sample values to screen y.
type RenderWindowUseCase struct {
	scope   *scope.Scope
	store   *services.ProfileStore
	limiter ports.FrameLimiter
	rate    float64
	burst   int
}

// NewRenderWindowUseCase creates a new use case. limiter may be nil.
func NewRenderWindowUseCase(sc *scope.Scope, store *services.ProfileStore, limiter ports.FrameLimiter, rate float64, burst int) *RenderWindowUseCase {
	return &RenderWindowUseCase{scope: sc, store: store, limiter: limiter, rate: rate, burst: burst}
}

// Execute renders one frame for req.Client. A width that is not a positive
// finite number selects DefaultWidth.
func (uc *RenderWindowUseCase) Execute(ctx context.Context, req WindowRequest) (WindowView, error) {
	if uc.limiter != nil && uc.rate > 0 {
		segments := req.MaxSegments
		if segments <= 0 {
			segments = uc.scope.Display().PointsToDisplay
		}
		if !uc.limiter.AllowFrame(ctx, req.Client, segments, uc.rate, uc.burst) {
			return WindowView{}, ErrRateLimited
		}
	}
	if !(req.Width > 0) || math.IsInf(req.Width, 0) {
		req.Width = DefaultWidth
	}

	f := uc.scope.Window(req.Width, req.MaxSegments)
	v := WindowView{
		Generation:  f.Generation,
		HistorySize: f.HistorySize,
		ValidPoints: f.ValidPoints,
		Width:       f.Width,
		Channels:    make([]ChannelView, 0, len(f.Channels)),
	}
	profile := uc.store.Load()
	for _, cw := range f.Channels {
		cv := ChannelView{
			Channel: cw.Channel,
			Name:    channelName(profile, cw.Channel),
			Trigger: cw.Trigger,
			Layout:  cw.Trace.Layout,
			Lines:   make([]Line, len(cw.Trace.Segments)),
		}
		for j, seg := range cw.Trace.Segments {
			cv.Lines[j] = Line{
				X1: seg.A.X,
				Y1: screenY(cw.Settings, cw.Levels[j][0]),
				X2: seg.B.X,
				Y2: screenY(cw.Settings, cw.Levels[j][1]),
			}
		}
		v.Channels = append(v.Channels, cv)
	}
	return v, nil
}

// screenY grows downwards, so larger values are drawn higher.
func screenY(cs scope.ChannelSettings, value float64) float64 {
	return cs.OffsetY - value*cs.ScaleY
}

func channelName(p *services.Profile, i int) string {
	if p == nil || i >= len(p.Settings.Channels) {
		return ""
	}
	return p.Settings.Channels[i].Name
}
