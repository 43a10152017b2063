package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	monitorScansTotal     *prometheus.CounterVec
	monitorEscalations    *prometheus.CounterVec
	monitorResolutions    *prometheus.CounterVec
	monitorTicksSkipped   prometheus.Counter
	monitorTickSeconds    prometheus.Histogram
	frequencyCacheResults *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the monitor.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		monitorScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_window_scans_total",
			Help: "Window scans performed by the activity monitor, by outcome.",
		}, []string{"time_period", "status"})

		monitorEscalations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_escalations_total",
			Help: "Escalation attempts by window and outcome (opened or skipped).",
		}, []string{"time_period", "outcome"})

		monitorResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_resolutions_total",
			Help: "Monitored user records resolved, by window.",
		}, []string{"time_period"})

		monitorTicksSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_ticks_skipped_total",
			Help: "Scheduler ticks skipped because the previous tick was still running.",
		})

		monitorTickSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_tick_duration_seconds",
			Help:    "Duration of a full scheduler tick across all windows.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		})

		frequencyCacheResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "action_frequency_requests_total",
			Help: "User frequency lookups by cache result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			monitorScansTotal,
			monitorEscalations,
			monitorResolutions,
			monitorTicksSkipped,
			monitorTickSeconds,
			frequencyCacheResults,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// MonitorScans exposes the window scan counter.
func MonitorScans() *prometheus.CounterVec {
	RegisterMetrics()
	return monitorScansTotal
}

// MonitorEscalations exposes the escalation counter.
func MonitorEscalations() *prometheus.CounterVec {
	RegisterMetrics()
	return monitorEscalations
}

// MonitorResolutions exposes the resolution counter.
func MonitorResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return monitorResolutions
}

// MonitorTicksSkipped exposes the skipped tick counter.
func MonitorTicksSkipped() prometheus.Counter {
	RegisterMetrics()
	return monitorTicksSkipped
}

// MonitorTickDuration exposes the tick duration histogram.
func MonitorTickDuration() prometheus.Histogram {
	RegisterMetrics()
	return monitorTickSeconds
}

// FrequencyCacheResults exposes the frequency lookup counter.
func FrequencyCacheResults() *prometheus.CounterVec {
	RegisterMetrics()
	return frequencyCacheResults
}
