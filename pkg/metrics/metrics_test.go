package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveTransition("phd-request", "approve", "hod_review", "completed")
	m.ObserveTransition("phd-request", "approve", "hod_review", "completed")
	m.ObserveEffectFailure("email")

	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("phd-request", "approve", "hod_review", "completed")); got != 2 {
		t.Errorf("期望 2 次转移，实际 %v", got)
	}
	if got := testutil.ToFloat64(m.EffectFailures.WithLabelValues("email")); got != 1 {
		t.Errorf("期望 1 次失败，实际 %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("a", "b", "c", "d")
	m.ObserveRejection("a", "b", "c")
	m.ObserveEffectFailure("todo")
}
