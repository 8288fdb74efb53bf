// Package metrics emits Prometheus metrics of each basic type into a
// node-exporter textfile.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/engine"
	"github.com/ancients-collective/hostready/internal/types"
)

// Outcome identifiers reported by the metric emitter.
const (
	CheckCounter   types.CheckID = "metric-counter"
	CheckGauge     types.CheckID = "metric-gauge"
	CheckHistogram types.CheckID = "metric-histogram"
	CheckSummary   types.CheckID = "metric-summary"
	CheckWrite     types.CheckID = "metric-write"
)

// ErrNoMetric is returned when a request selects no metric type.
var ErrNoMetric = errors.New("at least one of --counter, --gauge, --histogram, --summary is required")

// Request describes the metrics to emit. Each non-nil value emits one
// metric named Name plus the type suffix.
type Request struct {
	File        string
	Name        string
	Description string

	Counter   *float64 // increment
	Gauge     *float64 // value
	Histogram *float64 // observation, in seconds
	Summary   *float64 // observation, in seconds
}

// Validate reports requests that cannot emit anything.
func (r Request) Validate() error {
	if r.File == "" {
		return errors.New("metric file is required")
	}
	if r.Name == "" {
		return errors.New("metric name is required")
	}
	if r.Counter == nil && r.Gauge == nil && r.Histogram == nil && r.Summary == nil {
		return ErrNoMetric
	}
	return nil
}

// Emitter registers metrics on a dedicated registry, so process and Go
// runtime collectors never reach the textfile.
type Emitter struct {
	registry *prometheus.Registry
	log      *zap.Logger
}

// NewEmitter creates an Emitter with an empty registry.
func NewEmitter(log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{registry: prometheus.NewRegistry(), log: log}
}

// Registry exposes the dedicated registry.
func (e *Emitter) Registry() *prometheus.Registry {
	return e.registry
}

// Emit registers every requested metric, writes the registry to
// req.File and reports one outcome per metric plus one for the write.
func (e *Emitter) Emit(req Request) *types.ProbeReport {
	subject := "metrics " + req.File
	if err := req.Validate(); err != nil {
		return engine.Aggregate(subject, []types.CheckOutcome{types.Fail(CheckWrite, err.Error())}, nil)
	}

	var outcomes []types.CheckOutcome
	if req.Counter != nil {
		outcomes = append(outcomes, e.counter(req.Name, req.Description, *req.Counter))
	}
	if req.Gauge != nil {
		outcomes = append(outcomes, e.gauge(req.Name, req.Description, *req.Gauge))
	}
	if req.Histogram != nil {
		outcomes = append(outcomes, e.histogram(req.Name, req.Description, *req.Histogram))
	}
	if req.Summary != nil {
		outcomes = append(outcomes, e.summary(req.Name, req.Description, *req.Summary))
	}

	if err := prometheus.WriteToTextfile(req.File, e.registry); err != nil {
		outcomes = append(outcomes, types.Fail(CheckWrite, fmt.Sprintf("writing %s: %v", req.File, err)))
	} else {
		e.log.Debug("metrics written", zap.String("file", req.File))
		outcomes = append(outcomes, types.Pass(CheckWrite, fmt.Sprintf("metrics written to %s", req.File)))
	}

	return engine.Aggregate(subject, outcomes, nil)
}

func (e *Emitter) register(c prometheus.Collector) error {
	return e.registry.Register(c)
}

func (e *Emitter) counter(name, desc string, inc float64) types.CheckOutcome {
	name += "Counter"
	if inc < 0 || math.IsNaN(inc) {
		return types.Fail(CheckCounter, fmt.Sprintf("counter %s cannot be incremented by %v", name, inc))
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: "Counter metric description: " + desc,
	})
	if err := e.register(c); err != nil {
		return types.Fail(CheckCounter, fmt.Sprintf("registering %s: %v", name, err))
	}
	c.Add(inc)
	return types.Pass(CheckCounter, fmt.Sprintf("counter %s incremented by %v", name, inc))
}

func (e *Emitter) gauge(name, desc string, v float64) types.CheckOutcome {
	name += "Gauge"
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: "Gauge metric description: " + desc,
	})
	if err := e.register(g); err != nil {
		return types.Fail(CheckGauge, fmt.Sprintf("registering %s: %v", name, err))
	}
	g.Set(v)
	return types.Pass(CheckGauge, fmt.Sprintf("gauge %s set to %v", name, v))
}

func (e *Emitter) histogram(name, desc string, seconds float64) types.CheckOutcome {
	name += "Histogram"
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Histogram metric description: " + desc,
		Buckets: prometheus.DefBuckets,
	})
	if err := e.register(h); err != nil {
		return types.Fail(CheckHistogram, fmt.Sprintf("registering %s: %v", name, err))
	}
	h.Observe(seconds)

	m := &dto.Metric{}
	if err := h.Write(m); err != nil {
		return types.Fail(CheckHistogram, fmt.Sprintf("reading %s: %v", name, err))
	}
	return types.Pass(CheckHistogram, fmt.Sprintf("histogram %s observed %d sample(s), sum %v",
		name, m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()))
}

func (e *Emitter) summary(name, desc string, seconds float64) types.CheckOutcome {
	name += "Summary"
	s := prometheus.NewSummary(prometheus.SummaryOpts{
		Name: name,
		Help: "Summary metric description: " + desc,
	})
	if err := e.register(s); err != nil {
		return types.Fail(CheckSummary, fmt.Sprintf("registering %s: %v", name, err))
	}
	s.Observe(seconds)

	m := &dto.Metric{}
	if err := s.Write(m); err != nil {
		return types.Fail(CheckSummary, fmt.Sprintf("reading %s: %v", name, err))
	}
	return types.Pass(CheckSummary, fmt.Sprintf("summary %s observed %d sample(s), sum %v",
		name, m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()))
}
