package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveOperation("submit", "ok", 10*time.Millisecond)
	r.ObserveOperation("submit", "ok", 5*time.Millisecond)
	r.ObserveOperation("submit", "insufficient_stake", time.Millisecond)
	r.ObserveFinalized("approved")
	r.SetPendingReports(3)
	r.SetEscrow(500, 2)
	r.ObservePayout(70)
	r.ObservePayout(30)
	r.ObservePublishError()
	r.ObserveRPC("SubmitReport", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.operations.WithLabelValues("submit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues("submit", "insufficient_stake")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.finalized.WithLabelValues("approved")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.pendingReports))
	assert.Equal(t, 500.0, testutil.ToFloat64(r.escrowHeld))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.payoutsReleased))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.payoutValue))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.publishErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rpcRequests.WithLabelValues("SubmitReport", "ok")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveOperation("finalize", "ok", time.Second)
		r.SetEscrow(1, 1)
		r.ObservePayout(1)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.SetPendingReports(4)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "fraudledger_pending_reports 4")
}
