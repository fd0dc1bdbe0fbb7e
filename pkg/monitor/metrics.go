// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds the process-wide Prometheus metrics for the
// ingestion subsystem, registered once via sync.Once exactly like the
// teacher's pkg/ingestion/metrics.go.
type metricsIngestion struct {
	once sync.Once

	filesDiscovered prometheus.Counter
	filesModified   prometheus.Counter
	filesDeleted    prometheus.Counter

	insertsOK     prometheus.Counter
	insertsFailed prometheus.Counter
	insertRetries prometheus.Counter

	batchesProcessed prometheus.Counter
	enqueueDepth     *prometheus.GaugeVec

	alertsRaised *prometheus.CounterVec

	loadLevel *prometheus.GaugeVec

	insertDuration prometheus.Histogram
	scanDuration   prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.filesDiscovered = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_files_discovered_total", Help: "Files discovered as new by the change detector"})
		m.filesModified = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_files_modified_total", Help: "Files discovered as modified by the change detector"})
		m.filesDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_files_deleted_total", Help: "Files discovered as deleted by the change detector"})

		m.insertsOK = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_engine_inserts_total", Help: "Successful engine inserts"})
		m.insertsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_engine_insert_errors_total", Help: "Failed engine inserts"})
		m.insertRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_engine_insert_retries_total", Help: "Engine insert retry attempts"})

		m.batchesProcessed = prometheus.NewCounter(prometheus.CounterOpts{Name: "hybridrag_batches_processed_total", Help: "Batch-mode processing cycles completed"})
		m.enqueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "hybridrag_pending_queue_depth", Help: "Pending file count per database"}, []string{"database"})

		m.alertsRaised = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "hybridrag_alerts_raised_total", Help: "Alerts raised by severity"}, []string{"severity"})

		m.loadLevel = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "hybridrag_load_level", Help: "Current load level: 0=normal 1=high 2=critical"}, []string{"database"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.insertDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "hybridrag_engine_insert_seconds", Help: "Engine insert call duration", Buckets: buckets})
		m.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "hybridrag_scan_seconds", Help: "Change detector scan duration", Buckets: buckets})

		prometheus.MustRegister(
			m.filesDiscovered, m.filesModified, m.filesDeleted,
			m.insertsOK, m.insertsFailed, m.insertRetries,
			m.batchesProcessed, m.enqueueDepth,
			m.alertsRaised, m.loadLevel,
			m.insertDuration, m.scanDuration,
		)
	})
}

// RecordChanges updates the discover/modify/delete counters.
func RecordChanges(added, modified, deleted int) {
	ingMetrics.init()
	ingMetrics.filesDiscovered.Add(float64(added))
	ingMetrics.filesModified.Add(float64(modified))
	ingMetrics.filesDeleted.Add(float64(deleted))
}

// RecordInsert records the outcome and duration of one engine insert call.
func RecordInsert(ok bool, seconds float64) {
	ingMetrics.init()
	if ok {
		ingMetrics.insertsOK.Inc()
	} else {
		ingMetrics.insertsFailed.Inc()
	}
	ingMetrics.insertDuration.Observe(seconds)
}

// RecordInsertRetry increments the retry counter.
func RecordInsertRetry() {
	ingMetrics.init()
	ingMetrics.insertRetries.Inc()
}

// RecordBatch increments the batch-cycle counter and sets the current
// pending-queue depth gauge for database.
func RecordBatch(database string, pendingDepth int) {
	ingMetrics.init()
	ingMetrics.batchesProcessed.Inc()
	ingMetrics.enqueueDepth.WithLabelValues(database).Set(float64(pendingDepth))
}

// RecordAlert increments the per-severity alert counter.
func RecordAlert(sev AlertSeverity) {
	ingMetrics.init()
	ingMetrics.alertsRaised.WithLabelValues(string(sev)).Inc()
}

// LoadLevelValue maps a LoadLevel to the gauge value RecordLoadLevel uses.
func LoadLevelValue(level LoadLevel) float64 {
	switch level {
	case LoadHigh:
		return 1
	case LoadCritical:
		return 2
	default:
		return 0
	}
}

// RecordLoadLevel sets the current load-level gauge for database.
func RecordLoadLevel(database string, level LoadLevel) {
	ingMetrics.init()
	ingMetrics.loadLevel.WithLabelValues(database).Set(LoadLevelValue(level))
}

// RecordScan records a change-detector scan's duration.
func RecordScan(seconds float64) {
	ingMetrics.init()
	ingMetrics.scanDuration.Observe(seconds)
}
