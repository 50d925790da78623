package fraud

import "github.com/prometheus/client_golang/prometheus"

type collectors struct {
	signals   *prometheus.CounterVec
	processed *prometheus.CounterVec
	errors    prometheus.Counter
}

func newCollectors() *collectors {
	return &collectors{
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "fraud",
			Name:      "signals_total",
			Help:      "Fraud signals raised, by kind.",
		}, []string{"kind"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "fraud",
			Name:      "events_processed_total",
			Help:      "Login events inspected, by event type.",
		}, []string{"event_type"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "fraud",
			Name:      "errors_total",
			Help:      "Login events that could not be inspected.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (p *Processor) Describe(ch chan<- *prometheus.Desc) {
	p.metrics.signals.Describe(ch)
	p.metrics.processed.Describe(ch)
	p.metrics.errors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (p *Processor) Collect(ch chan<- prometheus.Metric) {
	p.metrics.signals.Collect(ch)
	p.metrics.processed.Collect(ch)
	p.metrics.errors.Collect(ch)
}
