package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"sgxfeed/internal/model"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	runs          *prometheus.CounterVec
	files         *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	storedBytes   *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgxfeed_runs_total",
				Help: "Pipeline runs by result.",
			},
			[]string{"status"},
		),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgxfeed_files_total",
				Help: "Processed files by outcome.",
			},
			[]string{"file", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgxfeed_fetch_duration_seconds",
				Help:    "Upstream fetch latency per file.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"file"},
		),
		storedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgxfeed_stored_bytes_total",
				Help: "Bytes written to the object store by category.",
			},
			[]string{"category"},
		),
	}

	for _, c := range []prometheus.Collector{m.runs, m.files, m.fetchDuration, m.storedBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeFetch(file string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(file).Observe(seconds)
}

func (m *Metrics) addStored(category string, n int) {
	if m == nil {
		return
	}
	m.storedBytes.WithLabelValues(category).Add(float64(n))
}

func (m *Metrics) observeRun(report *model.RunReport) {
	if m == nil {
		return
	}
	status := "success"
	if !report.Success {
		status = "failure"
	}
	m.runs.WithLabelValues(status).Inc()
	for _, f := range report.Files {
		m.files.WithLabelValues(f.FileName, string(f.Outcome)).Inc()
	}
}
