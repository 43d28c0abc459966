package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Logger = (*CountingLogger)(nil)

// CountingLogger counts records per level.
type CountingLogger struct {
	mu                         sync.Mutex
	Infos, Warns, Errs, Debugs int
	Messages                   []string
}

func (l *CountingLogger) record(n *int, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*n++
	l.Messages = append(l.Messages, msg)
}

func (l *CountingLogger) Info(msg string, _ ...any)  { l.record(&l.Infos, msg) }
func (l *CountingLogger) Warn(msg string, _ ...any)  { l.record(&l.Warns, msg) }
func (l *CountingLogger) Error(msg string, _ ...any) { l.record(&l.Errs, msg) }
func (l *CountingLogger) Debug(msg string, _ ...any) { l.record(&l.Debugs, msg) }

// WarnCount returns the number of warnings logged so far.
func (l *CountingLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Warns
}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a fixed time and never sleeps.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }
func (c *FixedClock) SleepContext(context.Context, time.Duration) error {
	return nil
}

var _ ports.FrameLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable AllowFrame result and records the
// segment count of every request.
type StubRateLimiter struct {
	AllowAll bool

	mu       sync.Mutex
	Segments []int
}

func (r *StubRateLimiter) AllowFrame(_ context.Context, _ string, segments int, _ float64, _ int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Segments = append(r.Segments, segments)
	return r.AllowAll
}

var _ ports.CommandSink = (*RecordingSink)(nil)

// RecordingSink records device commands as "Name:value".
type RecordingSink struct {
	mu       sync.Mutex
	Commands []string
	Err      error
}

func (s *RecordingSink) Send(_ context.Context, name string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Commands = append(s.Commands, fmt.Sprintf("%s:%d", name, value))
	return nil
}

// Sent returns a copy of the recorded commands.
func (s *RecordingSink) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Commands...)
}

var _ ports.Metrics = (*NoopMetrics)(nil)

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) PacketsDecoded(int)      {}
func (NoopMetrics) PacketsRejected(int)     {}
func (NoopMetrics) NoiseSkipped(int)        {}
func (NoopMetrics) Trigger(int, bool, bool) {}
func (NoopMetrics) Buffer(int, int)         {}
func (NoopMetrics) Resized()                {}

var _ settings.Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps the settings document in memory.
type MemoryRepository struct {
	mu      sync.Mutex
	doc     *settings.Settings
	Saves   int
	SaveErr error
}

// NewMemoryRepository starts with s stored, or empty when s is nil.
func NewMemoryRepository(s *settings.Settings) *MemoryRepository {
	return &MemoryRepository{doc: s}
}

func (r *MemoryRepository) Load(context.Context) (settings.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return settings.Settings{}, settings.ErrNotFound
	}
	return *r.doc, nil
}

func (r *MemoryRepository) Save(_ context.Context, s settings.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.doc = &s
	r.Saves++
	return nil
}
