package config

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks configuration loading for one component, exported as
// <component>_config_load_timestamp_seconds,
// <component>_config_validation_errors_total{field},
// <component>_config_fallbacks_total{field} and
// <component>_config_fallback_active.
type Metrics struct {
	LoadTimestamp    prometheus.Gauge
	ValidationErrors *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
	FallbackActive   prometheus.Gauge
}

func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// NewMetrics returns the metrics of component, reusing collectors that are
// already registered.
func NewMetrics(component string) *Metrics {
	return &Metrics{
		LoadTimestamp: register(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: component + "_config_load_timestamp_seconds",
			Help: "Unix time of the last configuration load",
		})),
		ValidationErrors: register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_config_validation_errors_total",
			Help: "Configuration values rejected by validation",
		}, []string{"field"})),
		Fallbacks: register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_config_fallbacks_total",
			Help: "Configuration values replaced by their default",
		}, []string{"field"})),
		FallbackActive: register(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: component + "_config_fallback_active",
			Help: "1 when the running configuration uses at least one fallback",
		})),
	}
}

// RecordLoad stamps the load time and whether any fallback is in use.
func (m *Metrics) RecordLoad(fallbackActive bool) {
	m.LoadTimestamp.Set(float64(time.Now().Unix()))
	if fallbackActive {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}

// RecordFallback counts a rejected value for field.
func (m *Metrics) RecordFallback(field string) {
	m.ValidationErrors.WithLabelValues(field).Inc()
	m.Fallbacks.WithLabelValues(field).Inc()
}
