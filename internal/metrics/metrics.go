package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal counts destination settlements by final status
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_settlements_total",
			Help: "Total number of destination settlements",
		},
		[]string{"status"},
	)

	// SettlementDuration tracks settlement processing time
	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_settlement_duration_seconds",
			Help:    "Settlement processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// ActionsExecuted counts destination actions by type and outcome
	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_actions_executed_total",
			Help: "Total number of destination actions executed",
		},
		[]string{"action", "outcome"},
	)

	// SwapsTotal counts swap executions
	SwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_swaps_total",
			Help: "Total number of swap executions",
		},
		[]string{"status"},
	)

	// SwapLegsExecuted counts individual swap legs
	SwapLegsExecuted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "router_swap_legs_executed_total",
			Help: "Total number of swap legs executed",
		},
	)

	// FeesDisbursed counts fee disbursements by fee type
	FeesDisbursed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_fees_disbursed_total",
			Help: "Total number of fee disbursements",
		},
		[]string{"fee_type"},
	)

	// BridgesInitiated counts source-side bridge envelopes
	BridgesInitiated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "router_bridges_initiated_total",
			Help: "Total number of bridge envelopes initiated",
		},
	)

	// DAppCallbacks counts dApp callback outcomes
	DAppCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_dapp_callbacks_total",
			Help: "Total number of dApp message callbacks",
		},
		[]string{"status"},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
