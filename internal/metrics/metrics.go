package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Exchange flows
	Exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchanges_total",
			Help: "Completed ownership transfers",
		},
		[]string{"type"}, // purchase|swap
	)
	ExchangeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_failures_total",
			Help: "Rolled-back exchange attempts",
		},
		[]string{"type"},
	)

	// Ledger
	LedgerWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_total",
			Help: "Committed points transactions",
		},
		[]string{"type"}, // earned|redeemed|bonus|refund
	)

	// Redemptions
	Redemptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Completed reward redemptions",
		},
	)
	RedemptionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_failures_total",
			Help: "Failed reward redemptions",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(Exchanges)
	prometheus.MustRegister(ExchangeFailures)
	prometheus.MustRegister(LedgerWrites)
	prometheus.MustRegister(Redemptions)
	prometheus.MustRegister(RedemptionFailures)
	prometheus.MustRegister(WorkerQueueDepth)
}
