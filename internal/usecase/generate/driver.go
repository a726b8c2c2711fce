// Package generate implements the fact generation pipeline: prompt building,
// model invocation with retry and backoff, repair-parsing of model output,
// fallback selection and persistence, orchestrated by Driver.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"historia-diaria/internal/domain/entity"
	"historia-diaria/internal/observability/tracing"
)

// State is a pipeline driver state.
type State string

const (
	StateStart              State = "start"
	StateGeneratingViaAI    State = "generating_via_ai"
	StateBackoff            State = "backoff"
	StateFallbackGeneration State = "fallback_generation"
	StatePersistingRecord   State = "persisting_record"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Fact sources reported in Result.Source.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// TextGenerator produces raw model text for a prompt.
type TextGenerator interface {
	Invoke(ctx context.Context, prompt string) (*Invocation, error)
}

// ResponseParser turns raw model text into a validated fact.
type ResponseParser interface {
	Parse(raw string, publishDate time.Time) (*entity.HistoricalFact, error)
}

// FallbackSource supplies a fact when the AI path is exhausted.
type FallbackSource interface {
	Select(date time.Time) entity.HistoricalFact
}

// RecordWriter persists a fact into the table of mode.
type RecordWriter interface {
	Write(ctx context.Context, mode entity.RunMode, fact *entity.HistoricalFact) error
}

// DriverConfig holds the outer retry policy.
type DriverConfig struct {
	// OuterAttempts is the number of full AI passes before falling back.
	OuterAttempts int
	// OuterBackoff is waited between failed AI passes.
	OuterBackoff time.Duration
}

// DefaultDriverConfig returns two outer attempts separated by 30 seconds.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{OuterAttempts: 2, OuterBackoff: 30 * time.Second}
}

// DriverDeps are the collaborators of a Driver.
type DriverDeps struct {
	Generator TextGenerator
	Parser    ResponseParser
	Fallback  FallbackSource
	Writer    RecordWriter
	Sleep     Sleeper
	Logger    *slog.Logger
	Metrics   MetricsRecorder
}

// Result describes a finished run.
type Result struct {
	RunID       string
	Fact        *entity.HistoricalFact
	Source      string
	Model       string
	Attempts    int
	State       State
	Transitions []State
	Duration    time.Duration
}

// Driver orchestrates one pipeline run.
type Driver struct {
	deps DriverDeps
	cfg  DriverConfig
}

// NewDriver returns a Driver. Missing optional deps get defaults.
func NewDriver(deps DriverDeps, cfg DriverConfig) (*Driver, error) {
	if deps.Generator == nil || deps.Parser == nil || deps.Fallback == nil || deps.Writer == nil {
		return nil, errors.New("generate: generator, parser, fallback and writer are required")
	}
	if cfg.OuterAttempts < 1 {
		cfg.OuterAttempts = 1
	}
	if deps.Sleep == nil {
		deps.Sleep = SleepContext
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewPrometheusMetrics()
	}
	return &Driver{deps: deps, cfg: cfg}, nil
}

// Run generates and persists the fact for date into the table of mode.
// It returns a Result in both terminal states; err is non-nil only when the
// run ends in StateFailed.
func (d *Driver) Run(ctx context.Context, mode entity.RunMode, date time.Time) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	logger := d.deps.Logger.With(
		slog.String("run_id", res.RunID),
		slog.String("mode", mode.String()),
		slog.String("table", mode.Table()),
		slog.String("publish_date", entity.FormatDate(date)))

	ctx, span := tracing.GetTracer().Start(ctx, "generate.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", res.RunID),
		attribute.String("mode", mode.String()),
		attribute.String("publish_date", entity.FormatDate(date)))

	d.enter(ctx, logger, res, StateStart)
	prompt := BuildPrompt(date)

	var fact *entity.HistoricalFact
	for attempt := 1; attempt <= d.cfg.OuterAttempts; attempt++ {
		res.Attempts = attempt
		d.enter(ctx, logger, res, StateGeneratingViaAI, slog.Int("attempt", attempt), slog.Int("max_attempts", d.cfg.OuterAttempts))

		f, model, err := d.generateViaAI(ctx, logger, prompt, date)
		if err == nil {
			fact, res.Source, res.Model = f, SourceAI, model
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return d.fail(ctx, logger, span, res, start, fmt.Errorf("generation canceled: %w", ctxErr))
		}
		logger.WarnContext(ctx, "ai generation failed",
			slog.Int("attempt", attempt),
			slog.Bool("malformed_output", IsMalformedOutput(err)),
			slog.Any("error", err))

		if attempt < d.cfg.OuterAttempts {
			d.enter(ctx, logger, res, StateBackoff, slog.Duration("delay", d.cfg.OuterBackoff))
			if err := d.deps.Sleep(ctx, d.cfg.OuterBackoff); err != nil {
				return d.fail(ctx, logger, span, res, start, fmt.Errorf("backoff canceled: %w", err))
			}
			continue
		}

		d.enter(ctx, logger, res, StateFallbackGeneration)
		fb := d.deps.Fallback.Select(date)
		fact, res.Source = &fb, SourceFallback
		logger.WarnContext(ctx, "using fallback fact",
			slog.String("title", fb.Title),
			slog.String("historical_date", fb.HistoricalDate))
	}

	d.enter(ctx, logger, res, StatePersistingRecord, slog.String("source", res.Source))
	if err := d.deps.Writer.Write(ctx, mode, fact); err != nil {
		return d.fail(ctx, logger, span, res, start, err)
	}

	res.Fact = fact
	res.Duration = time.Since(start)
	d.enter(ctx, logger, res, StateDone,
		slog.Int64("id", fact.ID),
		slog.String("title", fact.Title),
		slog.String("source", res.Source),
		slog.String("model", res.Model),
		slog.Duration("duration", res.Duration))
	span.SetAttributes(attribute.String("source", res.Source), attribute.Int64("fact_id", fact.ID))
	d.deps.Metrics.RecordRun("success", res.Source)
	d.deps.Metrics.RecordRunDuration(res.Duration)
	return res, nil
}

// generateViaAI is one outer attempt: invoke the models and parse the reply.
func (d *Driver) generateViaAI(ctx context.Context, logger *slog.Logger, prompt string, date time.Time) (*entity.HistoricalFact, string, error) {
	inv, err := d.deps.Generator.Invoke(ctx, prompt)
	if err != nil {
		return nil, "", err
	}
	fact, err := d.deps.Parser.Parse(inv.Text, date)
	if err != nil {
		logger.WarnContext(ctx, "model output rejected",
			slog.String("model", inv.Model),
			slog.Int("response_length", len(inv.Text)),
			slog.Any("error", err))
		return nil, inv.Model, fmt.Errorf("malformed model output from %s: %w", inv.Model, err)
	}
	return fact, inv.Model, nil
}

func (d *Driver) enter(ctx context.Context, logger *slog.Logger, res *Result, s State, attrs ...slog.Attr) {
	res.State = s
	res.Transitions = append(res.Transitions, s)
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("state", string(s)))
	for _, a := range attrs {
		args = append(args, a)
	}
	logger.InfoContext(ctx, "pipeline state", args...)
}

func (d *Driver) fail(ctx context.Context, logger *slog.Logger, span trace.Span, res *Result, start time.Time, err error) (*Result, error) {
	res.Duration = time.Since(start)
	d.enter(ctx, logger, res, StateFailed, slog.Any("error", err), slog.Duration("duration", res.Duration))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	source := res.Source
	if source == "" {
		source = "none"
	}
	d.deps.Metrics.RecordRun("failure", source)
	d.deps.Metrics.RecordRunDuration(res.Duration)
	return res, err
}
