package notify

import "github.com/prometheus/client_golang/prometheus"

type workerMetrics struct {
	sent         *prometheus.CounterVec
	retries      prometheus.Counter
	deadLettered *prometheus.CounterVec
}

func newWorkerMetrics() workerMetrics {
	return workerMetrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_notify_sent_total",
			Help: "Notifications delivered, by kind.",
		}, []string{"kind"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_notify_retries_total",
			Help: "Delivery attempts that failed and were retried.",
		}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_notify_dead_lettered_total",
			Help: "Notifications moved to the dead-letter list, by kind.",
		}, []string{"kind"}),
	}
}

// Describe implements prometheus.Collector.
func (w *Worker) Describe(ch chan<- *prometheus.Desc) {
	w.metrics.sent.Describe(ch)
	w.metrics.retries.Describe(ch)
	w.metrics.deadLettered.Describe(ch)
}

// Collect implements prometheus.Collector.
func (w *Worker) Collect(ch chan<- prometheus.Metric) {
	w.metrics.sent.Collect(ch)
	w.metrics.retries.Collect(ch)
	w.metrics.deadLettered.Collect(ch)
}
