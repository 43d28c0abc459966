package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var (
	packetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scope_packets_total",
		Help: "Wire packets by outcome",
	}, []string{"outcome"})

	noiseBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scope_noise_bytes_total",
		Help: "Bytes skipped while hunting for a packet sentinel",
	})

	triggerFound = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scope_trigger_found",
		Help: "1 when the channel's last trigger update found an edge",
	}, []string{"channel"})

	triggerLocked = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scope_trigger_locked",
		Help: "1 while the channel's trigger is locked",
	}, []string{"channel"})

	historySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scope_history_size",
		Help: "Ring buffer capacity in samples",
	})

	validPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scope_valid_points",
		Help: "Samples written since the last resize",
	})

	resizes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scope_resizes_total",
		Help: "Buffer reallocations",
	})
)

func init() {
	prometheus.MustRegister(packetsTotal, noiseBytes, triggerFound, triggerLocked, historySize, validPoints, resizes)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

var _ ports.Metrics = (*Recorder)(nil)

// Recorder implements ports.Metrics on the package collectors.
type Recorder struct{}

func (Recorder) PacketsDecoded(n int)  { packetsTotal.WithLabelValues("decoded").Add(float64(n)) }
func (Recorder) PacketsRejected(n int) { packetsTotal.WithLabelValues("rejected").Add(float64(n)) }
func (Recorder) NoiseSkipped(n int)    { noiseBytes.Add(float64(n)) }
func (Recorder) Resized()              { resizes.Inc() }

func (Recorder) Trigger(channel int, found, locked bool) {
	ch := strconv.Itoa(channel)
	triggerFound.WithLabelValues(ch).Set(b2f(found))
	triggerLocked.WithLabelValues(ch).Set(b2f(locked))
}

func (Recorder) Buffer(size, valid int) {
	historySize.Set(float64(size))
	validPoints.Set(float64(valid))
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
