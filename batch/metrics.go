package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 批量解析指标
type Metrics struct {
	docs     *prometheus.CounterVec
	bytes    prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics 创建指标并注册到 reg（nil 时不注册）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		docs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yakjson",
			Subsystem: "batch",
			Name:      "documents_total",
			Help:      "Total count of parsed documents by result.",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "yakjson",
			Subsystem: "batch",
			Name:      "input_bytes_total",
			Help:      "Total bytes of JSON input handed to the parser.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "yakjson",
			Subsystem: "batch",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing a single document.",
			// 10us .. ~2.6s
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.docs, m.bytes, m.duration)
	}
	return m
}

func (m *Metrics) observe(res *Result) {
	if m == nil {
		return
	}
	result := "ok"
	if res.Err != nil {
		result = "error"
	}
	m.docs.WithLabelValues(result).Inc()
	m.bytes.Add(float64(res.Bytes))
	m.duration.Observe(res.Duration.Seconds())
}
