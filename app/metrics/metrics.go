package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topups_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation", "outcome"})

	CheckoutsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topups_checkouts_created_total",
		Help: "Checkouts created at the gateway and stored locally",
	})

	CheckoutTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topups_checkout_transitions_total",
		Help: "Checkouts that left the PENDING status, by new status",
	}, []string{"status"})

	ConsistencyFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topups_consistency_faults_total",
		Help: "Stored checkouts that did not match the gateway record",
	})

	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topups_ledger_bookings_total",
		Help: "Ledger booking attempts, by result",
	}, []string{"result"})

	ReconcilePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topups_reconcile_passes_total",
		Help: "Reconciliation passes over pending checkouts, by result",
	}, []string{"result"})
)
