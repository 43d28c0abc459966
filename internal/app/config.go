package app

import "time"

// Config holds all configurable parameters for the application.
type Config struct {
	SettingsPath string // "" = defaults only
	Port         int
	EventLogSize int
	LogLevel     string

	SourceKind     string // "generator", "tcp" or "file"
	SourceAddr     string
	DialTimeout    time.Duration
	PacketsPerTick int // generator only

	WindowRate  float64 // /api/window requests per second per client, 0 = unlimited
	WindowBurst int
	WarnEvery   time.Duration

	RateLimiterTTL  time.Duration
	WatcherDebounce time.Duration

	MaxConnections  int // concurrent API connections, 0 = unlimited
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		SettingsPath: "./scope.yaml",
		Port:         8080,
		EventLogSize: 200,
		LogLevel:     "info",

		SourceKind:     "generator",
		DialTimeout:    5 * time.Second,
		PacketsPerTick: 10,

		WindowRate:  60,
		WindowBurst: 10,
		WarnEvery:   time.Second,

		RateLimiterTTL:  10 * time.Minute,
		WatcherDebounce: 500 * time.Millisecond,

		MaxConnections:  64,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
