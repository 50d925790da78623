package authgate

import (
	"testing"
	"time"
)

// hotPath is the counter mix of a login-heavy workload.
var hotPath = [...]MetricID{
	MetricLoginSuccess,
	MetricLoginFailure,
	MetricSessionCreated,
	MetricRefreshSuccess,
	MetricRefreshFailure,
	MetricPhoneOTPIssued,
	MetricMFALoginRequired,
	MetricLogout,
}

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.Inc(MetricLoginSuccess)
			}
		})
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(hotPath[idx])
			if idx++; idx == len(hotPath) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsObserveParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		d := time.Duration(0)
		for pb.Next() {
			// Walk every bucket.
			d = (d + 3*time.Millisecond) % (2 * time.Second)
			m.Observe(MetricValidateLatency, d)
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range hotPath {
		m.Inc(id)
	}
	m.Observe(MetricLoginLatency, 40*time.Millisecond)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
