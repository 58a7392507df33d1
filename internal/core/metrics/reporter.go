package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// 确保 PromReporter 实现 Reporter 接口
var _ interfaces.Reporter = (*PromReporter)(nil)

const namespace = "iproxy"

// PromReporter 基于 Prometheus 的 Reporter
type PromReporter struct {
	sessions *prometheus.CounterVec
	active   prometheus.Gauge
	bytes    *prometheus.CounterVec
}

// NewPromReporter 创建 Reporter 并注册到 reg
func NewPromReporter(reg prometheus.Registerer) (*PromReporter, error) {
	r := &PromReporter{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions handled, by outcome.",
		}, []string{"outcome"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently running.",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_total",
			Help:      "Bytes relayed, by direction.",
		}, []string{"direction"}),
	}

	for _, c := range []prometheus.Collector{r.sessions, r.active, r.bytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SessionStarted 实现 Reporter 接口
func (r *PromReporter) SessionStarted() {
	r.active.Inc()
}

// SessionFinished 实现 Reporter 接口
func (r *PromReporter) SessionFinished(outcome interfaces.SessionOutcome) {
	r.active.Dec()
	r.sessions.WithLabelValues(string(outcome)).Inc()
}

// BytesRelayed 实现 Reporter 接口
func (r *PromReporter) BytesRelayed(direction string, n int) {
	r.bytes.WithLabelValues(direction).Add(float64(n))
}
