package ffauth

import (
	"sync/atomic"
	"testing"
	"time"
)

// hotMetricIDs are the counters touched on every request path.
var hotMetricIDs = [...]MetricID{
	MetricAuthorizeSuccess,
	MetricAuthorizeFailure,
	MetricRefreshSuccess,
	MetricRefreshRotated,
	MetricLoginSuccess,
	MetricLoginFailure,
	MetricSessionCreated,
	MetricLogout,
}

type counterSink interface {
	Inc(MetricID)
}

// unpaddedCounters is the naive layout, kept to measure false sharing.
type unpaddedCounters struct {
	counters [metricIDCount]uint64
}

func (m *unpaddedCounters) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

func BenchmarkMetricsInc(b *testing.B) {
	cases := []struct {
		name string
		cfg  MetricsConfig
	}{
		{name: "enabled", cfg: MetricsConfig{Enabled: true}},
		{name: "disabled", cfg: MetricsConfig{Enabled: false}},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			m := NewMetrics(tc.cfg)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.Inc(MetricAuthorizeSuccess)
			}
		})
		b.Run(tc.name+"/parallel", func(b *testing.B) {
			m := NewMetrics(tc.cfg)
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Inc(MetricAuthorizeSuccess)
				}
			})
		})
	}
}

func BenchmarkMetricsIncHotSet(b *testing.B) {
	sinks := []struct {
		name string
		new  func() counterSink
	}{
		{name: "padded", new: func() counterSink { return NewMetrics(MetricsConfig{Enabled: true}) }},
		{name: "unpadded", new: func() counterSink { return &unpaddedCounters{} }},
	}

	for _, s := range sinks {
		b.Run(s.name, func(b *testing.B) {
			m := s.new()
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				idx := 0
				for pb.Next() {
					m.Inc(hotMetricIDs[idx%len(hotMetricIDs)])
					idx++
				}
			})
		})
	}
}

func BenchmarkMetricsObserveAuthorizeLatency(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 3 * time.Millisecond
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricAuthorizeLatency, d)
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range hotMetricIDs {
		m.Inc(id)
	}
	m.Observe(MetricAuthorizeLatency, time.Millisecond)
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
