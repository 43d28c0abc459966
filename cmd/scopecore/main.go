package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sophialabs/scopecore/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath, "settings file (YAML); empty for defaults only")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.SourceKind, "source", cfg.SourceKind, "packet source (generator, tcp, file)")
	flag.StringVar(&cfg.SourceAddr, "addr", cfg.SourceAddr, "host:port for tcp, path for file")
	flag.IntVar(&cfg.PacketsPerTick, "packets-per-tick", cfg.PacketsPerTick, "generator packets per refresh tick")
	flag.Float64Var(&cfg.WindowRate, "window-rate", cfg.WindowRate, "frame requests per second per client (0 = unlimited)")
	flag.IntVar(&cfg.MaxConnections, "max-conns", cfg.MaxConnections, "concurrent API connections (0 = unlimited)")
	flag.IntVar(&cfg.EventLogSize, "events", cfg.EventLogSize, "number of events to keep")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
