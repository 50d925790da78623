package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or latency histogram.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricMFALoginRequired
	MetricMFALoginSuccess
	MetricMFALoginFailure
	MetricMFAReplayAttempt
	MetricGoogleLoginSuccess
	MetricGoogleLoginFailure
	MetricPhoneOTPIssued
	MetricPhoneOTPRateLimited
	MetricPhoneOTPVerifySuccess
	MetricPhoneOTPVerifyFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricSessionCreated
	MetricLogout
	MetricLogoutAll
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricTOTPSetup
	MetricTOTPEnabled
	MetricTOTPDisabled
	MetricTOTPFailure
	MetricTOTPRateLimited
	MetricAccountStatusChanged
	MetricNotificationEnqueueFailure
	MetricLoginLatency
	MetricRefreshLatency
	MetricValidateLatency
	metricIDCount
)

// HistogramBucketCount is the number of latency buckets; see bucketIndex
// for the upper bounds.
const HistogramBucketCount = 8

const cacheLineSize = 64

type metricHistogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. The zero value is disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter, plus histogram
// buckets for latency metrics when enabled.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics allocates the counter array; it never fails and performs no I/O.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id. Safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of a latency metric; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !IsLatencyMetric(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot copies the counters atomically one by one; the result is not a
// consistent cut across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 3),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if IsLatencyMetric(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range latencyMetrics {
			buckets := make([]uint64, HistogramBucketCount)
			for i := 0; i < HistogramBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

var latencyMetrics = [...]MetricID{MetricLoginLatency, MetricRefreshLatency, MetricValidateLatency}

// IsLatencyMetric reports whether id names a histogram rather than a counter.
func IsLatencyMetric(id MetricID) bool {
	switch id {
	case MetricLoginLatency, MetricRefreshLatency, MetricValidateLatency:
		return true
	default:
		return false
	}
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
