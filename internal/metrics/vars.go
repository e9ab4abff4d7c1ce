package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QuoteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_quote_latency_seconds",
		Help:    "Time to obtain an aggregator quote",
		Buckets: prometheus.DefBuckets,
	})

	RelayAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_relay_accepted_total",
		Help: "Relay submissions explicitly accepted",
	})

	RelayRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_relay_rejected_total",
		Help: "Relay submissions that failed or were rejected",
	})

	TipLamports = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swap_tip_lamports",
		Help: "Priority incentive attached to the last attempt",
	})

	ConfirmFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_confirm_finalized_total",
		Help: "Attempts observed finalized before the deadline",
	})

	ConfirmTimedOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_confirm_timed_out_total",
		Help: "Attempts that hit the confirmation deadline",
	})
)

func init() {
	prometheus.MustRegister(
		QuoteLatency,
		RelayAccepted,
		RelayRejected,
		TipLamports,
		ConfirmFinalized,
		ConfirmTimedOut,
	)
}
