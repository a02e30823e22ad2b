package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"siteops/internal/rpc"
	"siteops/pkg/logger"
	"siteops/pkg/metrics"
	"siteops/pkg/trace"
)

type (
	// Procedure is one scheduled remote call and the log lines it produces
	Procedure struct {
		Name    string
		Success string
		Failure string
	}

	// Outcome records how a single procedure call went
	Outcome struct {
		Name     string
		Err      error
		Duration time.Duration
	}

	// Publisher receives outcome events; *mq.Publisher satisfies it
	Publisher interface {
		Publish(ctx context.Context, routingKey string, payload any) error
	}

	// OutcomeEvent is the payload published for each Outcome
	OutcomeEvent struct {
		Procedure  string    `json:"procedure"`
		Success    bool      `json:"success"`
		Error      string    `json:"error,omitempty"`
		DurationMS int64     `json:"duration_ms"`
		FinishedAt time.Time `json:"finished_at"`
	}

	// Runner calls its procedures in order, isolating their failures
	Runner struct {
		backend    rpc.Backend
		procedures []Procedure
		publisher  Publisher
		logger     *zap.Logger
	}

	// Option customizes a Runner
	Option func(*Runner)
)

// Routing keys for outcome events
const (
	EventProcedureSucceeded = "trigger.procedure.succeeded"
	EventProcedureFailed    = "trigger.procedure.failed"
)

var (
	// DefaultProcedures run on every trigger, publish before archive
	DefaultProcedures = []Procedure{
		{
			Name:    "publish_scheduled_events",
			Success: "Scheduled events published",
			Failure: "Error publishing scheduled events",
		},
		{
			Name:    "archive_past_events",
			Success: "Past events archived",
			Failure: "Error archiving past events",
		},
	}

	ErrAborted = errors.New("scheduled run aborted")
)

// WithProcedures replaces DefaultProcedures
func WithProcedures(procs ...Procedure) Option {
	return func(r *Runner) {
		r.procedures = procs
	}
}

// WithPublisher sends an OutcomeEvent per procedure
func WithPublisher(p Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

func NewRunner(backend rpc.Backend, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		backend:    backend,
		procedures: DefaultProcedures,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calls every procedure once, in order. A procedure's error is logged
// and recorded in its Outcome without stopping the ones after it. The
// returned error is non-nil only when the sequence itself breaks down.
func (r *Runner) Run(ctx context.Context) (outcomes []Outcome, err error) {
	ctx, _ = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrAborted, rec)
			log.Error("Scheduled run aborted", zap.Any("panic", rec))
		}
	}()

	log.Info("Running scheduled tasks", zap.Int("procedures", len(r.procedures)))
	for _, p := range r.procedures {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomes, fmt.Errorf("%w: %w", ErrAborted, ctxErr)
		}
		outcome := r.call(ctx, log, p)
		outcomes = append(outcomes, outcome)
		r.publish(ctx, log, outcome)
	}

	log.Info("Scheduled tasks completed",
		zap.Int("failed", countFailed(outcomes)),
	)
	return outcomes, nil
}

func (r *Runner) call(ctx context.Context, log *zap.Logger, p Procedure) Outcome {
	start := time.Now()
	err := r.backend.Call(ctx, p.Name)
	outcome := Outcome{Name: p.Name, Err: err, Duration: time.Since(start)}

	if err != nil {
		metrics.RecordRPCCallDuration(p.Name, "error", outcome.Duration)
		log.Error(p.Failure,
			zap.String("procedure", p.Name),
			zap.Duration("duration", outcome.Duration),
			zap.Error(err),
		)
		return outcome
	}

	metrics.RecordRPCCallDuration(p.Name, "ok", outcome.Duration)
	log.Info(p.Success,
		zap.String("procedure", p.Name),
		zap.Duration("duration", outcome.Duration),
	)
	return outcome
}

func (r *Runner) publish(ctx context.Context, log *zap.Logger, o Outcome) {
	if r.publisher == nil {
		return
	}
	event := OutcomeEvent{
		Procedure:  o.Name,
		Success:    o.Err == nil,
		DurationMS: o.Duration.Milliseconds(),
		FinishedAt: time.Now().UTC(),
	}
	routingKey := EventProcedureSucceeded
	if o.Err != nil {
		event.Error = o.Err.Error()
		routingKey = EventProcedureFailed
	}
	if err := r.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Warn("Failed to publish outcome event",
			zap.String("routing_key", routingKey),
			zap.String("procedure", o.Name),
			zap.Error(err),
		)
	}
}

// RunEvery runs immediately and then on every tick until ctx is done
func (r *Runner) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("Scheduled run failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Scheduled trigger stopped")
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("Scheduled run failed", zap.Error(err))
			}
		}
	}
}

func countFailed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
