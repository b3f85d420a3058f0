// Package metrics exposes Prometheus metrics for the ledger node.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes Prometheus metrics for the node. A nil *Recorder records
// nothing.
type Recorder struct {
	operations      *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	finalized       *prometheus.CounterVec
	pendingReports  prometheus.Gauge
	escrowHeld      prometheus.Gauge
	escrowRetained  prometheus.Gauge
	payoutsReleased prometheus.Counter
	payoutValue     prometheus.Counter
	publishErrors   prometheus.Counter
	rpcRequests     *prometheus.CounterVec
}

// NewRecorder registers metrics with provided registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudledger_operations_total",
			Help: "Ledger operations grouped by operation and result code",
		}, []string{"op", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fraudledger_operation_duration_seconds",
			Help:    "Latency of ledger operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudledger_reports_finalized_total",
			Help: "Finalized reports grouped by outcome",
		}, []string{"status"}),
		pendingReports: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fraudledger_pending_reports",
			Help: "Reports awaiting finalization",
		}),
		escrowHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fraudledger_escrow_held",
			Help: "Value currently held in escrow, in base units",
		}),
		escrowRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fraudledger_escrow_retained",
			Help: "Value retained by the ledger from rounding and unclaimed pools, in base units",
		}),
		payoutsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraudledger_payouts_released_total",
			Help: "Payouts transferred out of escrow",
		}),
		payoutValue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraudledger_payout_value_total",
			Help: "Value transferred out of escrow, in base units",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraudledger_event_publish_errors_total",
			Help: "Events that could not be delivered to a sink",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudledger_rpc_requests_total",
			Help: "RPC requests grouped by method and result code",
		}, []string{"method", "result"}),
	}

	reg.MustRegister(
		r.operations,
		r.opDuration,
		r.finalized,
		r.pendingReports,
		r.escrowHeld,
		r.escrowRetained,
		r.payoutsReleased,
		r.payoutValue,
		r.publishErrors,
		r.rpcRequests,
	)
	return r
}

// Handler returns HTTP handler serving /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ObserveOperation records one engine operation and its result code.
func (r *Recorder) ObserveOperation(op, result string, d time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result).Inc()
	r.opDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) ObserveFinalized(status string) {
	if r == nil {
		return
	}
	r.finalized.WithLabelValues(status).Inc()
}

func (r *Recorder) SetPendingReports(n int) {
	if r == nil {
		return
	}
	r.pendingReports.Set(float64(n))
}

func (r *Recorder) SetEscrow(held, retained uint64) {
	if r == nil {
		return
	}
	r.escrowHeld.Set(float64(held))
	r.escrowRetained.Set(float64(retained))
}

func (r *Recorder) ObservePayout(amount uint64) {
	if r == nil {
		return
	}
	r.payoutsReleased.Inc()
	r.payoutValue.Add(float64(amount))
}

func (r *Recorder) ObservePublishError() {
	if r == nil {
		return
	}
	r.publishErrors.Inc()
}

func (r *Recorder) ObserveRPC(method, result string) {
	if r == nil {
		return
	}
	r.rpcRequests.WithLabelValues(method, result).Inc()
}
