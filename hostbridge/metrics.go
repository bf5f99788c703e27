package hostbridge

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Metrics represents the bridge metrics
type Metrics struct {
	// Results marshalled, by variant
	SuccessResults metrics.Counter
	RevertResults  metrics.Counter
	HaltResults    metrics.Counter
	// Buffer views handed to the host
	BridgedBuffers metrics.Counter
	// Bytes behind those views
	BridgedBytes metrics.Counter
	// Release callbacks the host has run
	ReleasesRun metrics.Counter
	// Conversions aborted at the host boundary
	BridgeFailures metrics.Counter
	// Views currently live in the host
	LiveViews metrics.Gauge
}

// GetPrometheusMetrics return the bridge metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) *Metrics {
	labels := []string{}

	for i := 0; i < len(labelsWithValues); i += 2 {
		labels = append(labels, labelsWithValues[i])
	}

	return &Metrics{
		SuccessResults: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "success_results",
			Help:      "Success results marshalled for the host",
		}, labels).With(labelsWithValues...),
		RevertResults: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "revert_results",
			Help:      "Revert results marshalled for the host",
		}, labels).With(labelsWithValues...),
		HaltResults: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "halt_results",
			Help:      "Halt results marshalled for the host",
		}, labels).With(labelsWithValues...),
		BridgedBuffers: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "bridged_buffers",
			Help:      "Buffer views handed to the host",
		}, labels).With(labelsWithValues...),
		BridgedBytes: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "bridged_bytes",
			Help:      "Bytes behind the views handed to the host",
		}, labels).With(labelsWithValues...),
		ReleasesRun: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "releases_run",
			Help:      "Release callbacks run by the host",
		}, labels).With(labelsWithValues...),
		BridgeFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "bridge_failures",
			Help:      "Conversions aborted at the host boundary",
		}, labels).With(labelsWithValues...),
		LiveViews: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hostbridge",
			Name:      "live_views",
			Help:      "Views currently live in the host",
		}, labels).With(labelsWithValues...),
	}
}

// NilMetrics will return the non operational bridge metrics
func NilMetrics() *Metrics {
	return &Metrics{
		SuccessResults: discard.NewCounter(),
		RevertResults:  discard.NewCounter(),
		HaltResults:    discard.NewCounter(),
		BridgedBuffers: discard.NewCounter(),
		BridgedBytes:   discard.NewCounter(),
		ReleasesRun:    discard.NewCounter(),
		BridgeFailures: discard.NewCounter(),
		LiveViews:      discard.NewGauge(),
	}
}
