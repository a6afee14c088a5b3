// Package telemetry exposes optional Prometheus collectors for model
// training and inference. A nil *Metrics is valid and records nothing, so
// learners can call it unconditionally.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bayesnet"

// Metrics groups the collectors registered by NewMetrics.
type Metrics struct {
	// fits counts Fit calls.
	// Labels: model, status (success, error)
	fits *prometheus.CounterVec

	// fitDuration measures Fit wall time in seconds.
	// Labels: model
	fitDuration *prometheus.HistogramVec

	// predictions counts predicted samples.
	// Labels: model
	predictions *prometheus.CounterVec

	// boostRounds counts accepted boosting rounds.
	// Labels: model
	boostRounds *prometheus.CounterVec

	// boostAlpha tracks the significance of accepted boosted models.
	boostAlpha prometheus.Histogram

	// boostStops counts why boosting loops ended.
	// Labels: reason
	boostStops *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "fits_total",
			Help:      "Total Fit calls by model and status",
		}, []string{"model", "status"}),
		fitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "fit_duration_seconds",
			Help:      "Fit duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"model"}),
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "predicted_samples_total",
			Help:      "Total samples classified",
		}, []string{"model"}),
		boostRounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boost",
			Name:      "rounds_total",
			Help:      "Total accepted boosting rounds",
		}, []string{"model"}),
		boostAlpha: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "boost",
			Name:      "alpha",
			Help:      "Significance of accepted boosted models",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5},
		}),
		boostStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boost",
			Name:      "stops_total",
			Help:      "Boosting loop terminations by reason",
		}, []string{"reason"}),
	}
}

// ObserveFit records one Fit call.
func (m *Metrics) ObserveFit(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.fits.WithLabelValues(model, status).Inc()
	m.fitDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObservePredictions adds n classified samples.
func (m *Metrics) ObservePredictions(model string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.predictions.WithLabelValues(model).Add(float64(n))
}

// ObserveBoostRound records an accepted boosting round.
func (m *Metrics) ObserveBoostRound(model string, alpha float64) {
	if m == nil {
		return
	}
	m.boostRounds.WithLabelValues(model).Inc()
	m.boostAlpha.Observe(alpha)
}

// ObserveBoostStop records why a boosting loop ended.
func (m *Metrics) ObserveBoostStop(reason string) {
	if m == nil {
		return
	}
	m.boostStops.WithLabelValues(reason).Inc()
}
