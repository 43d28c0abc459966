package ports

import (
	"context"
	"io"
	"time"
)

// Clock provides the current time (for testing).
type Clock interface {
	Now() time.Time
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// FrameLimiter admits window requests per viewer.
type FrameLimiter interface {
	// AllowFrame checks whether client may fetch a frame of up to segments
	// line segments per channel. rate is tokens per second, burst is the
	// max burst size; larger frames take more tokens.
	AllowFrame(ctx context.Context, client string, segments int, rate float64, burst int) bool
}

// ByteSource is the device link the acquisition loop reads packets from.
// Read may block; Close unblocks it.
type ByteSource interface {
	io.ReadCloser
}

// CommandSink receives control commands for the device.
type CommandSink interface {
	Send(ctx context.Context, name string, value int) error
}

// Scaler converts a raw ADC count of one channel to buffer units.
type Scaler interface {
	Scale(raw uint16) (float64, error)
}

// ScalerFactory builds a channel's Scaler from its settings.
type ScalerFactory interface {
	// NewScaler compiles expression, or returns the linear default when it
	// is empty. gain is the channel's signal level.
	NewScaler(expression string, gain float64) (Scaler, error)
}

// ReadoutChannel is the per-channel data exposed to readout templates.
type ReadoutChannel struct {
	Index     int
	Name      string
	Active    bool
	Value     float64
	HasValue  bool
	Triggered bool
	Locked    bool
}

// ReadoutRenderer turns channel values into display labels.
type ReadoutRenderer interface {
	Render(channels []ReadoutChannel) (string, error)
}

// ReadoutCompiler compiles a readout template source.
type ReadoutCompiler interface {
	Compile(name, source string) (ReadoutRenderer, error)
}

// Metrics records acquisition counters.
type Metrics interface {
	PacketsDecoded(n int)
	PacketsRejected(n int)
	NoiseSkipped(n int)
	Trigger(channel int, found, locked bool)
	Buffer(historySize, validPoints int)
	Resized()
}
