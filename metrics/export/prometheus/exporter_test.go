package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/authgate/authgate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authgate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                     { return f.dropped }

func TestCollectOnlyDroppedWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters:   map[authgate.MetricID]uint64{},
			Histograms: map[authgate.MetricID][]uint64{},
		},
	})

	if got := testutil.CollectAndCount(exp); got != 1 {
		t.Fatalf("expected only the dropped counter, got %d metrics", got)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricLoginSuccess:   7,
				authgate.MetricRefreshFailure: 0,
			},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP authgate_login_success_total Successful logins, across all methods.
# TYPE authgate_login_success_total counter
authgate_login_success_total 7
# HELP authgate_events_dropped_total Events discarded because the dispatcher buffer was full.
# TYPE authgate_events_dropped_total counter
authgate_events_dropped_total 2
`
	if err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"authgate_login_success_total", "authgate_events_dropped_total"); err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(exp)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "authgate_validate_latency_seconds" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 36 {
			t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
		}
		if got := h.GetBucket()[0].GetCumulativeCount(); got != 1 {
			t.Fatalf("expected first bucket 1, got %d", got)
		}
		if got := h.GetBucket()[6].GetCumulativeCount(); got != 28 {
			t.Fatalf("expected 0.5s bucket 28, got %d", got)
		}
	}
	if !found {
		t.Fatal("validate latency histogram not exported")
	}
}

func TestExporterAgainstEngine(t *testing.T) {
	var e *authgate.Engine
	exp := NewExporter(e)
	if got := testutil.CollectAndCount(exp); got != 1 {
		t.Fatalf("expected only the dropped counter for a nil engine, got %d", got)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters:   map[authgate.MetricID]uint64{authgate.MetricLoginSuccess: 1},
			Histograms: map[authgate.MetricID][]uint64{},
		},
	})

	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "authgate_login_success_total 1") {
		t.Fatalf("expected login counter in body, got:\n%s", body)
	}
}

func BenchmarkCollect(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricLoginSuccess:         1000,
				authgate.MetricLoginFailure:         40,
				authgate.MetricRefreshSuccess:       800,
				authgate.MetricRefreshFailure:       10,
				authgate.MetricSessionCreated:       800,
				authgate.MetricPasswordResetFailure: 3,
			},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(exp)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = reg.Gather()
	}
}
