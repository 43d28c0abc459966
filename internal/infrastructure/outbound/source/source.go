// Package source provides the byte streams the acquisition loop reads wire
// packets from: a TCP bridge to the device, a device node or capture file,
// or the built-in test signal generator.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// ErrUnknownKind is returned by Open for an unsupported source kind.
var ErrUnknownKind = errors.New("unknown source kind")

const (
	KindTCP       = "tcp"
	KindFile      = "file"
	KindGenerator = "generator"
)

// Options configures Open.
type Options struct {
	Kind string
	// Addr is host:port for tcp and a path for file.
	Addr        string
	DialTimeout time.Duration

	// Generator pacing.
	Clock          ports.Clock
	Interval       time.Duration
	PacketsPerTick int
	Seed           uint64
}

// Open connects the configured source.
func Open(ctx context.Context, o Options) (ports.ByteSource, error) {
	switch o.Kind {
	case KindTCP:
		d := net.Dialer{Timeout: o.DialTimeout}
		conn, err := d.DialContext(ctx, "tcp", o.Addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", o.Addr, err)
		}
		return conn, nil
	case KindFile:
		f, err := os.Open(o.Addr)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", o.Addr, err)
		}
		return f, nil
	case KindGenerator, "":
		return NewGenerator(o.Clock, o.Interval, o.PacketsPerTick, o.Seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, o.Kind)
	}
}
