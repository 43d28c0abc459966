package source

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/device"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var (
	_ ports.ByteSource = (*Generator)(nil)
	_ io.Writer        = (*Generator)(nil)
)

const (
	baseline   = 1000.0
	timeStep   = 0.01
	signalFreq = 1.0
	dutyCycle  = 0.3
	pulseWidth = 0.05
	floorNoise = 4.0
)

// Generator synthesizes four reference waveforms and emits them as wire
// packets, so a scope without hardware exercises the full framing path.
// Like the board it stands in for, it accepts control commands on Write:
// Rate sets the tick interval in milliseconds and "Test signal:0" switches
// to the quiet floor of unconnected inputs.
//
//	ch0  sine with 3rd and 5th harmonics
//	ch1  square, 30% duty
//	ch2  sawtooth
//	ch3  short pulse with noise
type Generator struct {
	clk      ports.Clock
	interval time.Duration
	perTick  int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	t       float64
	rng     *rand.Rand
	pending []byte
	idle    bool
	lines   device.LineReader
}

// NewGenerator emits perTick packets every interval.
func NewGenerator(clk ports.Clock, interval time.Duration, perTick int, seed uint64) *Generator {
	if perTick <= 0 {
		perTick = 10
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Generator{
		clk:      clk,
		interval: interval,
		perTick:  perTick,
		ctx:      ctx,
		cancel:   cancel,
		rng:      rand.New(rand.NewPCG(seed, seed^0x5ca1ab1e)),
	}
}

// Read blocks until the next tick when nothing is pending. After Close it
// returns io.EOF.
func (g *Generator) Read(p []byte) (int, error) {
	g.mu.Lock()
	empty := len(g.pending) == 0
	interval := g.interval
	g.mu.Unlock()

	if empty {
		if err := g.clk.SleepContext(g.ctx, interval); err != nil {
			return 0, io.EOF
		}
		g.mu.Lock()
		for range g.perTick {
			b := packet.EncodeValues(g.next())
			g.pending = append(g.pending, b[:]...)
		}
		g.mu.Unlock()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx.Err() != nil {
		return 0, io.EOF
	}
	n := copy(p, g.pending)
	g.pending = g.pending[n:]
	return n, nil
}

// Write applies control commands. Unknown or malformed lines are ignored,
// as the board does.
func (g *Generator) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, line := range g.lines.Write(p) {
		name, v, err := device.ParseCommand(line)
		if err != nil {
			continue
		}
		switch name {
		case device.CmdRate:
			if v > 0 {
				g.interval = time.Duration(v) * time.Millisecond
			}
		case device.CmdTestSignal:
			g.idle = v == 0
		}
	}
	return len(p), nil
}

// Interval is the current tick interval.
func (g *Generator) Interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interval
}

// Close stops the generator.
func (g *Generator) Close() error {
	g.cancel()
	return nil
}

func (g *Generator) next() packet.Values {
	if g.idle {
		var v packet.Values
		for i := range v {
			v[i] = toCount(baseline + floorNoise*(g.rng.Float64()*2-1))
		}
		return v
	}
	v := Sample(g.t, g.rng.Float64()*2-1)
	g.t += timeStep
	return v
}

// Sample computes the four channels at signal time t. noise in [-1, 1]
// perturbs the pulse channel.
func Sample(t, noise float64) packet.Values {
	harmonics := math.Sin(t) + 0.5*math.Sin(3*t) + 0.3*math.Sin(5*t)
	return packet.Values{
		toCount(baseline + 400*harmonics),
		toCount(baseline + 300*square(t)),
		toCount(baseline + 350*sawtooth(t)),
		toCount(baseline + 400*(pulse(t)+0.1*noise)),
	}
}

func phase(t float64) (float64, float64) {
	period := 1 / signalFreq
	return math.Mod(t, period), period
}

func square(t float64) float64 {
	ph, period := phase(t)
	if ph < dutyCycle*period {
		return 1
	}
	return -1
}

func sawtooth(t float64) float64 {
	ph, period := phase(t)
	return 2*(ph/period) - 1
}

func pulse(t float64) float64 {
	if ph, _ := phase(t); ph < pulseWidth {
		return 1
	}
	return 0
}

func toCount(v float64) uint16 {
	return uint16(math.Round(max(0, min(v, 4095))))
}
