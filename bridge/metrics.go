package bridge

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series tracking the packet engine's own activity, served
// over promhttp alongside the websocket stream.
var (
	PacketsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gbprinter_packets_decoded_total",
		Help: "Packets the engine completed parsing, by command byte.",
	}, []string{"command"})

	ChecksumErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gbprinter_checksum_errors_total",
		Help: "Packets whose checksum did not verify.",
	})

	BufferFullTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gbprinter_buffer_full_total",
		Help: "Times the committed DATA ring buffer transitioned to image-data-full.",
	})

	RingOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gbprinter_ring_occupancy_bytes",
		Help: "Committed, unread bytes currently sitting in the DATA ring buffer.",
	})

	ResetsByCause = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gbprinter_resets_total",
		Help: "Engine resets, by cause.",
	}, []string{"cause"})
)

// ServeMetrics starts an HTTP server exposing /metrics on addr. It
// returns immediately; call Close on the returned server to stop it.
func ServeMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}

// commandLabel maps a command byte to the stable metric label used for
// it, collapsing anything unrecognized into "unknown" to bound the
// label's cardinality.
func commandLabel(command uint8) string {
	switch command {
	case 0x01:
		return "init"
	case 0x02:
		return "print"
	case 0x04:
		return "data"
	case 0x08:
		return "break"
	case 0x0F:
		return "inquiry"
	default:
		return "unknown"
	}
}

// ObservePacketCompleted records one decoded packet's metrics: the
// command counter, a checksum-error increment if it failed, and an
// updated ring occupancy gauge.
func ObservePacketCompleted(command uint8, checksumOK bool, ringOccupancy int) {
	PacketsDecoded.WithLabelValues(commandLabel(command)).Inc()
	if !checksumOK {
		ChecksumErrors.Inc()
	}
	RingOccupancy.Set(float64(ringOccupancy))
}

// ObserveReset records a reset by its cause.
func ObserveReset(cause uint8) {
	label := "init"
	switch cause {
	case ResetCauseBreak:
		label = "break"
	case ResetCauseTimeout:
		label = "timeout"
	}
	ResetsByCause.WithLabelValues(label).Inc()
}
