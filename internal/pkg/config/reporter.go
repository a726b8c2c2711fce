package config

import "log/slog"

// Reporter logs and counts fallbacks while a component loads its settings.
type Reporter struct {
	logger  *slog.Logger
	metrics *Metrics
	applied bool
}

// NewReporter returns a Reporter. metrics may be nil.
func NewReporter(logger *slog.Logger, metrics *Metrics) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger, metrics: metrics}
}

// Take returns r.Value, logging and counting the fallback under field if one
// was applied.
func Take[T any](rep *Reporter, field string, r LoadResult[T]) T {
	if r.FallbackApplied {
		rep.applied = true
		if rep.metrics != nil {
			rep.metrics.RecordFallback(field)
		}
		for _, w := range r.Warnings {
			rep.logger.Warn("configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", w))
		}
	}
	return r.Value
}

// Done records the load in the metrics and reports whether any fallback was applied.
func (rep *Reporter) Done() bool {
	if rep.metrics != nil {
		rep.metrics.RecordLoad(rep.applied)
	}
	return rep.applied
}
