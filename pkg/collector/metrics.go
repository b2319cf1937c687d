package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of a collector
type Metrics struct {
	appendsTotal   *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
	evictionsTotal prometheus.Counter
	bytesTotal     prometheus.Counter
	usedBytes      prometheus.Gauge
	capacityBytes  prometheus.Gauge
}

// NewMetrics creates the collector metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		appendsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prbuf_appends_total",
				Help: "Total number of entries appended to the ring buffer",
			},
			[]string{"kind"},
		),
		rejectedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prbuf_appends_rejected_total",
				Help: "Total number of entries that were not appended",
			},
			[]string{"reason"},
		),
		evictionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "prbuf_evictions_total",
			Help: "Total number of entries dropped to make room for newer ones",
		}),
		bytesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "prbuf_appended_bytes_total",
			Help: "Total encoded bytes appended",
		}),
		usedBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "prbuf_used_bytes",
			Help: "Bytes currently occupied by live records, padding included",
		}),
		capacityBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "prbuf_capacity_bytes",
			Help: "Bytes available to records",
		}),
	}
}

func (m *Metrics) recordAppend(kind string, size int, evicted uint64, used, capacity uint32) {
	if m == nil {
		return
	}
	m.appendsTotal.WithLabelValues(kind).Inc()
	m.bytesTotal.Add(float64(size))
	m.evictionsTotal.Add(float64(evicted))
	m.usedBytes.Set(float64(used))
	m.capacityBytes.Set(float64(capacity))
}

func (m *Metrics) recordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordUsage(used, capacity uint32) {
	if m == nil {
		return
	}
	m.usedBytes.Set(float64(used))
	m.capacityBytes.Set(float64(capacity))
}
