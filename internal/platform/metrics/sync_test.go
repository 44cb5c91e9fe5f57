package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSyncMetrics_Collects(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveGateDecision("fresh")
	m.ObserveGateDecision("fresh")
	m.ObserveCategory("standings", "failed")
	m.ObserveRun("manual", "partial", 1500*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	got := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				got[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				got[mf.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	want := map[string]float64{
		"fantasy_hoops_sync_gate_decisions_total": 2,
		"fantasy_hoops_sync_categories_total":     1,
		"fantasy_hoops_sync_runs_total":           1,
		"fantasy_hoops_sync_duration_seconds":     1,
	}
	for name, value := range want {
		if got[name] != value {
			t.Fatalf("%s: got %v want %v", name, got[name], value)
		}
	}
}
