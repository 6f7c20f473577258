// Package metrics carries the Prometheus surface for the API and worker
// processes. Each process owns a private registry so tests never trip over
// double registration.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/extraction"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	batchTotal      *prometheus.CounterVec
	batchDuration   *prometheus.HistogramVec
	batchInFlight   prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	extractionTotal *prometheus.CounterVec
	issuesTotal     *prometheus.CounterVec
	savingsCents    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mbd",
			Subsystem: "worker",
			Name:      "batch_process_total",
			Help:      "Total processed batches by status.",
		},
		[]string{"service", "status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mbd",
			Subsystem: "worker",
			Name:      "batch_process_duration_seconds",
			Help:      "Batch processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mbd",
			Subsystem: "worker",
			Name:      "batch_process_in_flight",
			Help:      "Number of in-flight batch analyses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mbd",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between batch submission and analysis start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	extractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mbd",
			Subsystem: "extraction",
			Name:      "outcomes_total",
			Help:      "Extraction outcomes by document type, repair stage, retry, and failure.",
		},
		[]string{"service", "doc_type", "repair_stage", "retried", "failed"},
	)
	issuesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mbd",
			Subsystem: "detect",
			Name:      "issues_total",
			Help:      "Detected issues by type.",
		},
		[]string{"service", "issue_type"},
	)
	savingsCents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mbd",
			Subsystem: "detect",
			Name:      "potential_savings_cents_total",
			Help:      "Accumulated potential savings in cents across reports.",
		},
		[]string{"service"},
	)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, queueLag, extractionTotal, issuesTotal, savingsCents)

	return &WorkerMetrics{
		registry:        registry,
		batchTotal:      batchTotal,
		batchDuration:   batchDuration,
		batchInFlight:   batchInFlight,
		queueLag:        queueLag,
		extractionTotal: extractionTotal,
		issuesTotal:     issuesTotal,
		savingsCents:    savingsCents,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(service string, duration time.Duration, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.batchTotal.WithLabelValues(service, status).Inc()
	m.batchDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

// PipelineObserver adapts WorkerMetrics to the pipeline event interface.
type PipelineObserver struct {
	metrics *WorkerMetrics
	service string
}

func NewPipelineObserver(metrics *WorkerMetrics, service string) *PipelineObserver {
	return &PipelineObserver{metrics: metrics, service: service}
}

func (o *PipelineObserver) ExtractionOutcome(docType domain.DocType, stage extraction.RepairStage, retried, failed bool) {
	o.metrics.extractionTotal.WithLabelValues(
		o.service,
		string(docType),
		string(stage),
		strconv.FormatBool(retried),
		strconv.FormatBool(failed),
	).Inc()
}

func (o *PipelineObserver) IssuesDetected(issueType domain.IssueType, count int) {
	if count <= 0 {
		return
	}
	o.metrics.issuesTotal.WithLabelValues(o.service, string(issueType)).Add(float64(count))
}

func (o *PipelineObserver) SavingsAccumulated(cents int64) {
	if cents <= 0 {
		return
	}
	o.metrics.savingsCents.WithLabelValues(o.service).Add(float64(cents))
}
