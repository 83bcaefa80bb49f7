package page

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/clubsignup/metrics"
)

const (
	metricCatalogLoads    = "catalog_loads_total"
	metricCatalogSize     = "catalog_activities"
	metricSignups         = "signups_total"
	metricUnregistrations = "unregistrations_total"
	loadOutcomeSuccess    = "success"
	loadOutcomeFailure    = "failure"
	loadOutcomeStale      = "stale"
	labelOutcome          = "outcome"
)

// Metrics records page activity. A nil *Metrics records nothing.
type Metrics struct {
	loads           metrics.CounterVec
	catalogSize     metrics.Gauge
	signups         metrics.CounterVec
	unregistrations metrics.CounterVec
}

// NewMetrics creates the page metrics in reg.
func NewMetrics(reg metrics.Registry) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.loads, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: metricCatalogLoads,
		Help: "Count of catalog loads by outcome",
	}, []string{labelOutcome})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricCatalogLoads, err)
	}

	m.catalogSize, err = reg.NewGauge(prometheus.GaugeOpts{
		Name: metricCatalogSize,
		Help: "Number of activities in the last applied catalog",
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricCatalogSize, err)
	}

	m.signups, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: metricSignups,
		Help: "Count of signup submissions by outcome",
	}, []string{labelOutcome})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricSignups, err)
	}

	m.unregistrations, err = reg.NewCounterVec(prometheus.CounterOpts{
		Name: metricUnregistrations,
		Help: "Count of unregistration attempts by outcome",
	}, []string{labelOutcome})
	if err != nil {
		return nil, fmt.Errorf("creating %s metric: %w", metricUnregistrations, err)
	}

	return m, nil
}

func (m *Metrics) load(outcome string) {
	if m == nil {
		return
	}
	m.loads.With(prometheus.Labels{labelOutcome: outcome}).Inc()
}

func (m *Metrics) loaded(size int) {
	if m == nil {
		return
	}
	m.catalogSize.Set(float64(size))
}

func (m *Metrics) signup(o Outcome) {
	if m == nil {
		return
	}
	m.signups.With(prometheus.Labels{labelOutcome: o.String()}).Inc()
}

func (m *Metrics) unregister(o Outcome) {
	if m == nil {
		return
	}
	m.unregistrations.With(prometheus.Labels{labelOutcome: o.String()}).Inc()
}
