package otel

import (
	"context"
	"errors"
	"fmt"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goOIDC.MetricsSnapshot
	AuditDropped() uint64
}

type counterInstrument struct {
	id  goOIDC.MetricID
	ins metric.Int64ObservableCounter
}

// latencyInstruments mirror one engine histogram: a gauge per cumulative
// bucket plus count and sum.
type latencyInstruments struct {
	id      goOIDC.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
}

// OTelExporter publishes engine metrics through asynchronous instruments
// observed by a single callback.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	counters     []counterInstrument
	latency      []latencyInstruments
	auditDropped metric.Int64ObservableCounter

	observables []metric.Observable
}

func NewOTelExporter(meter metric.Meter, engine *goOIDC.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	if err := e.createCounters(meter); err != nil {
		return nil, err
	}
	if err := e.createHistograms(meter); err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(e.observe, e.observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *OTelExporter) createCounters(meter metric.Meter) error {
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, ins: ins})
		e.observables = append(e.observables, ins)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	e.observables = append(e.observables, dropped)
	return nil
}

func (e *OTelExporter) createHistograms(meter metric.Meter) error {
	for _, def := range internaldefs.HistogramDefs {
		l := latencyInstruments{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			l.buckets[i] = ins
			e.observables = append(e.observables, ins)
		}

		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
		}
		sum, err := meter.Float64ObservableGauge(def.Name+"_sum",
			metric.WithDescription("Histogram total observed seconds."),
			metric.WithUnit("s"),
		)
		if err != nil {
			return fmt.Errorf("create histogram sum gauge %s_sum: %w", def.Name, err)
		}
		l.count, l.sum = count, sum
		e.observables = append(e.observables, count, sum)
		e.latency = append(e.latency, l)
	}
	return nil
}

// observe reads one snapshot per collection cycle.
func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, l := range e.latency {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[l.id]))
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets[i], int64(v))
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(l.sum, snap.HistogramSums[l.id].Seconds())
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
