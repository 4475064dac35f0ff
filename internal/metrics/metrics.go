package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "yaku_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	tickTotal       *prometheus.CounterVec
	tickLatency     *prometheus.HistogramVec
	tickErrors      *prometheus.CounterVec
	lastSuccess     prometheus.Gauge
	recordsBatched  prometheus.Counter
	recordsReceived prometheus.Counter
)

// Init registers ingestion metrics with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		tickTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ticks_total",
				Help: "Total ingestion ticks by result",
			},
			[]string{"result"},
		)
		tickLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tick_duration_seconds",
				Help:    "Ingestion tick duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		tickErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tick_errors_total",
				Help: "Total ingestion tick errors by stage",
			},
			[]string{"stage"},
		)
		lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_success_timestamp_seconds",
			Help: "Unix time of the last persisted record",
		})
		recordsReceived = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "queue_records_received_total",
			Help: "Records consumed from the message queue",
		})
		recordsBatched = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "queue_records_stored_total",
			Help: "Records from the message queue stored in batches",
		})

		prometheus.MustRegister(
			tickTotal,
			tickLatency,
			tickErrors,
			lastSuccess,
			recordsReceived,
			recordsBatched,
		)
	})
}

// ObserveTick records one tick's outcome. stage is ignored on success.
func ObserveTick(result, stage string, duration time.Duration, at time.Time) {
	if result == "" {
		result = ResultSuccess
	}
	if tickTotal != nil {
		tickTotal.WithLabelValues(result).Inc()
	}
	if tickLatency != nil {
		tickLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if result == ResultSuccess {
		if lastSuccess != nil {
			lastSuccess.Set(float64(at.Unix()))
		}
		return
	}
	if stage == "" {
		stage = "unknown"
	}
	if tickErrors != nil {
		tickErrors.WithLabelValues(stage).Inc()
	}
}

func IncRecordsReceived(count int) {
	if count <= 0 || recordsReceived == nil {
		return
	}
	recordsReceived.Add(float64(count))
}

func IncRecordsStored(count int) {
	if count <= 0 || recordsBatched == nil {
		return
	}
	recordsBatched.Add(float64(count))
}
