package logging

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var _ ports.Logger = (*SlogLogger)(nil)

// SlogLogger wraps slog to implement ports.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// New creates a new SlogLogger from an slog.Logger.
func New(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// With returns a logger that adds args to every record.
func (l *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

var _ ports.Logger = (*Throttled)(nil)

// Throttled forwards Warn records through a token bucket so a noisy line
// cannot flood the log. Dropped warnings are counted and reported on the
// next one that gets through. Other levels pass unthrottled.
type Throttled struct {
	ports.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	suppressed int
}

// NewThrottled allows one warning per every, with bursts of up to burst.
func NewThrottled(next ports.Logger, every time.Duration, burst int) *Throttled {
	return &Throttled{
		Logger:  next,
		limiter: rate.NewLimiter(rate.Every(every), max(burst, 1)),
	}
}

func (t *Throttled) Warn(msg string, args ...any) {
	t.mu.Lock()
	if !t.limiter.Allow() {
		t.suppressed++
		t.mu.Unlock()
		return
	}
	n := t.suppressed
	t.suppressed = 0
	t.mu.Unlock()

	if n > 0 {
		args = append(args, "suppressed", n)
	}
	t.Logger.Warn(msg, args...)
}

// Suppressed returns the number of warnings dropped since the last one
// that was logged.
func (t *Throttled) Suppressed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suppressed
}
