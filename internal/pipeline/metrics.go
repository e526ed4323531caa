package pipeline

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	decoded   prometheus.Counter
	recovered prometheus.Counter
	failed    *prometheus.CounterVec
	duration  prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		decoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rlc",
			Name:      "blocks_decoded_total",
			Help:      "Blocks whose source symbols were fully recovered.",
		}),
		recovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rlc",
			Name:      "symbols_recovered_total",
			Help:      "Lost source symbols rebuilt from repair symbols.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rlc",
			Name:      "blocks_failed_total",
			Help:      "Blocks that could not be decoded, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rlc",
			Name:      "block_decode_seconds",
			Help:      "Time spent decoding one block.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.decoded, m.recovered, m.failed, m.duration} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
