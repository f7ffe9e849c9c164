package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Outbound M-Pesa calls by operation (token, stkpush, stkquery) and outcome
	GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_gateway_requests_total",
		Help: "Total number of M-Pesa gateway calls",
	}, []string{"operation", "outcome"})

	GatewayLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mpesa_gateway_latency_seconds",
		Help:    "Latency of M-Pesa gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Terminal payment updates actually applied, by source (order, wallet) and status
	PaymentSettlements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Total number of payments moved out of pending",
	}, []string{"source", "status"})

	// Callbacks that matched no pending record or arrived after settlement
	PaymentCallbacksIgnored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_callbacks_ignored_total",
		Help: "Total number of gateway callbacks that changed nothing",
	})

	WalletCreditedAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_credited_amount_kes_total",
		Help: "Sum of wallet top-ups credited, in KES",
	})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			GatewayRequests,
			GatewayLatency,
			PaymentSettlements,
			PaymentCallbacksIgnored,
			WalletCreditedAmount,
		)
	})
}
