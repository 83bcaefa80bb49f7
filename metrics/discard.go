package metrics

import "github.com/prometheus/client_golang/prometheus"

// Discard is a Registry whose metrics record nothing.
var Discard Registry = discardRegistry{}

type discardRegistry struct{}

type discardMetric struct{}

type discardGaugeVec struct{}

type discardCounterVec struct{}

func (discardRegistry) NewGauge(prometheus.GaugeOpts) (Gauge, error) {
	return discardMetric{}, nil
}

func (discardRegistry) NewGaugeVec(prometheus.GaugeOpts, []string) (GaugeVec, error) {
	return discardGaugeVec{}, nil
}

func (discardRegistry) NewCounter(prometheus.CounterOpts) (Counter, error) {
	return discardMetric{}, nil
}

func (discardRegistry) NewCounterVec(prometheus.CounterOpts, []string) (CounterVec, error) {
	return discardCounterVec{}, nil
}

func (discardMetric) Set(float64) {}
func (discardMetric) Inc()        {}
func (discardMetric) Add(float64) {}

func (discardGaugeVec) With(prometheus.Labels) Gauge     { return discardMetric{} }
func (discardCounterVec) With(prometheus.Labels) Counter { return discardMetric{} }
