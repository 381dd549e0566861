// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus counters and histograms for the
// document processing pipeline and its upstreams.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	documentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_documents_processed_total",
		Help: "Documents processed by outcome",
	}, []string{"outcome"}) // outcome=completed|failed|rejected

	documentsByType = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_documents_by_type_total",
		Help: "Documents processed by classified document type",
	}, []string{"document_type"})

	processingDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doculens_processing_duration_seconds",
		Help:    "End-to-end processing time per pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"}) // stage=parse|ocr|classify|extract|persist|total

	classificationConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doculens_classification_confidence",
		Help:    "Confidence reported by the classifier",
		Buckets: []float64{0.1, 0.25, 0.5, 0.7, 0.8, 0.9, 0.95, 0.99},
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doculens_async_queue_depth",
		Help: "Documents waiting in the async processing queue",
	})

	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doculens_async_active_workers",
		Help: "Workers currently processing a document",
	})

	// Upstream metrics
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_upstream_requests_total",
		Help: "Calls to upstream services by outcome",
	}, []string{"upstream", "outcome"}) // upstream=llamaparse|gemini|llamaextract|postgrest

	upstreamDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "doculens_upstream_duration_seconds",
		Help:    "Upstream call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream"})

	cacheEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_cache_events_total",
		Help: "Classification cache hits and misses",
	}, []string{"event"}) // event=hit|miss

	// Contract metrics
	contractOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_contract_operations_total",
		Help: "Contract management operations by type and outcome",
	}, []string{"operation", "outcome"}) // operation=copy_template|upload|delete|select

	contractCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "doculens_contracts",
		Help: "Contracts in the active classification set by source",
	}, []string{"source"}) // source=user|system

	// Operational metrics
	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	uploadsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doculens_uploads_rejected_total",
		Help: "Uploads rejected before processing by reason",
	}, []string{"reason"}) // reason=too_large|unsupported_format|empty
)

func IncDocumentProcessed(outcome string) {
	documentsProcessedTotal.WithLabelValues(outcome).Inc()
}

func IncDocumentType(documentType string) {
	if documentType == "" {
		documentType = "unknown"
	}
	documentsByType.WithLabelValues(documentType).Inc()
}

func ObserveStageDuration(stage string, d time.Duration) {
	processingDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func ObserveConfidence(confidence float64) {
	classificationConfidence.Observe(confidence)
}

func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }
func WorkerStarted()      { activeWorkers.Inc() }
func WorkerFinished()     { activeWorkers.Dec() }

func IncUpstreamRequest(upstream, outcome string) {
	upstreamRequestsTotal.WithLabelValues(upstream, outcome).Inc()
}

func ObserveUpstreamDuration(upstream string, d time.Duration) {
	upstreamDurationSeconds.WithLabelValues(upstream).Observe(d.Seconds())
}

func IncCacheHit()  { cacheEventsTotal.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheEventsTotal.WithLabelValues("miss").Inc() }

func IncContractOperation(operation, outcome string) {
	contractOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func SetContractCount(source string, n int) {
	contractCount.WithLabelValues(source).Set(float64(n))
}

func IncConfigReload(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	configReloadsTotal.WithLabelValues(outcome).Inc()
}

func IncUploadRejected(reason string) {
	uploadsRejectedTotal.WithLabelValues(reason).Inc()
}
