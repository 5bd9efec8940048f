package goOIDC

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricFlowStarted counts flows spawned by StartFlow.
	MetricFlowStarted MetricID = iota
	// MetricFlowSuperseded counts running flows cancelled by a newer StartFlow.
	MetricFlowSuperseded
	// MetricAuthURLIssued counts authorization requests answered with a handle.
	MetricAuthURLIssued
	// MetricAuthRequestFailure counts authorization requests that ended the flow.
	MetricAuthRequestFailure
	// MetricPollAttempt counts poll calls.
	MetricPollAttempt
	// MetricPollPending counts polls answered with the pending-authorization error.
	MetricPollPending
	// MetricPollTransportError counts polls that failed in transport and were retried.
	MetricPollTransportError
	// MetricPollIgnored counts polls with an unrecognized response shape.
	MetricPollIgnored
	// MetricLoginSuccess counts flows that reached PhaseLoggedIn.
	MetricLoginSuccess
	// MetricLoginFailure counts flows that ended with a failure message.
	MetricLoginFailure
	// MetricFlowTimeout counts flows that exhausted the polling budget.
	MetricFlowTimeout
	// MetricFlowCancelled counts flows that observed cancellation.
	MetricFlowCancelled
	// MetricCredentialsPersisted counts remembered logins written to the store.
	MetricCredentialsPersisted
	// MetricCredentialsPersistFailure counts remembered logins the store rejected.
	MetricCredentialsPersistFailure
	// MetricLoginLatency is the histogram of time from StartFlow to PhaseLoggedIn.
	MetricLoginLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
	sumNs   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters. Calls on a disabled or nil
// instance are no-ops.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a copy of all counters. Histograms hold non-cumulative
// bucket counts; HistogramSums the total observed duration.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

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

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricLoginLatency is a
// histogram; other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricLoginLatency {
		return
	}
	if d < 0 {
		d = 0
	}

	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumNs, uint64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricLoginLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		h := &m.histograms[MetricLoginLatency]
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&h.buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
		s.HistogramSums[MetricLoginLatency] = time.Duration(atomic.LoadUint64(&h.sumNs))
	}

	return s
}

// LatencyBucketBounds are the upper bounds of the login latency histogram
// buckets; the last bucket is unbounded.
var LatencyBucketBounds = [histBucketCount - 1]time.Duration{
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	30 * time.Second,
	60 * time.Second,
	90 * time.Second,
	120 * time.Second,
}

func bucketIndex(d time.Duration) int {
	for i, bound := range LatencyBucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
