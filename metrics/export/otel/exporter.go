package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authgate.MetricsSnapshot
	EventsDropped() uint64
}

// latencyGauges carries one histogram as a cumulative bucket gauge, keyed by
// an "le" attribute, plus its sample count.
type latencyGauges struct {
	id      authgate.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter observes engine snapshots on every collection cycle of the
// supplied meter.
type Exporter struct {
	source        metricsSource
	registration  metric.Registration
	counters      map[authgate.MetricID]metric.Int64ObservableCounter
	latencies     []latencyGauges
	eventsDropped metric.Int64ObservableCounter
	bucketAttrs   [authgate.HistogramBucketCount]metric.ObserveOption
}

// NewExporter registers observable instruments for engine on meter.
func NewExporter(meter metric.Meter, engine *authgate.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for any snapshot source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[authgate.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for i := range e.bucketAttrs {
		e.bucketAttrs[i] = metric.WithAttributes(attribute.String("le", internaldefs.BucketLabel(i)))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative sample count per upper bound."),
			metric.WithUnit("{sample}"))
		if err != nil {
			return nil, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
			metric.WithUnit("{sample}"))
		if err != nil {
			return nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
		}
		e.latencies = append(e.latencies, latencyGauges{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.EventsDroppedName,
		metric.WithDescription("Events discarded because the dispatcher buffer was full."))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.EventsDroppedName, err)
	}
	e.eventsDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snap.Counters[id]))
	}
	for _, l := range e.latencies {
		raw, ok := snap.Histograms[l.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets, int64(v), e.bucketAttrs[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.eventsDropped, int64(e.source.EventsDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
