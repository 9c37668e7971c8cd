package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "alert_engine_"

var (
	registerOnce sync.Once

	evaluationsTotal *prometheus.CounterVec

	alertsFiredTotal    *prometheus.CounterVec
	alertsResolvedTotal prometheus.Counter
	suppressedTotal     prometheus.Counter

	dispatchTotal    *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
	channelsDegraded *prometheus.GaugeVec

	readingsIngested *prometheus.CounterVec
)

// Init registers all engine metrics with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Rule evaluations by result",
			},
			[]string{"result"},
		)
		alertsFiredTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_fired_total",
				Help: "Alerts fired by severity",
			},
			[]string{"severity"},
		)
		alertsResolvedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_resolved_total",
				Help: "Alerts resolved",
			},
		)
		suppressedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "matches_suppressed_total",
				Help: "Matches swallowed by cooldown suppression",
			},
		)
		dispatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_total",
				Help: "Notification dispatch outcomes by channel and result",
			},
			[]string{"channel", "result"},
		)
		dispatchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dispatch_latency_seconds",
				Help:    "Notification delivery latency by channel",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		)
		channelsDegraded = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "channel_degraded",
				Help: "1 when a notification channel is degraded",
			},
			[]string{"channel"},
		)
		readingsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_ingested_total",
				Help: "Sensor readings accepted by source",
			},
			[]string{"source"},
		)

		prometheus.MustRegister(
			evaluationsTotal,
			alertsFiredTotal,
			alertsResolvedTotal,
			suppressedTotal,
			dispatchTotal,
			dispatchLatency,
			channelsDegraded,
			readingsIngested,
		)
	})
}

// ObserveEvaluation counts one evaluation cycle by result
// (matched, not_matched, skipped, error, dropped).
func ObserveEvaluation(result string) {
	if evaluationsTotal != nil {
		evaluationsTotal.WithLabelValues(result).Inc()
	}
}

// IncAlertsFired counts one fire by severity.
func IncAlertsFired(severity string) {
	if alertsFiredTotal != nil {
		alertsFiredTotal.WithLabelValues(severity).Inc()
	}
}

// IncAlertsResolved counts one resolution.
func IncAlertsResolved() {
	if alertsResolvedTotal != nil {
		alertsResolvedTotal.Inc()
	}
}

// IncSuppressed counts one cooldown suppression.
func IncSuppressed() {
	if suppressedTotal != nil {
		suppressedTotal.Inc()
	}
}

// ObserveDispatch counts one delivery outcome (delivered, failed, duplicate).
func ObserveDispatch(channel, result string) {
	if dispatchTotal != nil {
		dispatchTotal.WithLabelValues(channel, result).Inc()
	}
}

// ObserveDispatchLatency records delivery latency in seconds.
func ObserveDispatchLatency(channel string, seconds float64) {
	if dispatchLatency != nil {
		dispatchLatency.WithLabelValues(channel).Observe(seconds)
	}
}

// SetChannelDegraded flips the degraded gauge for a channel.
func SetChannelDegraded(channel string, degraded bool) {
	if channelsDegraded == nil {
		return
	}
	if degraded {
		channelsDegraded.WithLabelValues(channel).Set(1)
	} else {
		channelsDegraded.WithLabelValues(channel).Set(0)
	}
}

// IncReadingsIngested counts one accepted reading by source (http, kafka).
func IncReadingsIngested(source string) {
	if readingsIngested != nil {
		readingsIngested.WithLabelValues(source).Inc()
	}
}
