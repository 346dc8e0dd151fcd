package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyvo/studio/pkg/mystic"
)

// DefaultInterval is the delay before every status query.
const DefaultInterval = 2 * time.Second

const tracerName = "github.com/vyvo/studio/pkg/workflow"

// TaskAPI is the remote job API driven by the controller.
type TaskAPI interface {
	Submit(ctx context.Context, req mystic.GenerationRequest) (mystic.Task, error)
	Status(ctx context.Context, taskID string) (mystic.Task, error)
}

var _ TaskAPI = (*mystic.Client)(nil)

// Timer arms a one-shot delay and returns its channel plus a stop func.
type Timer func(d time.Duration) (<-chan time.Time, func() bool)

func newTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Option customises a Controller.
type Option func(*Controller)

// WithInterval overrides the delay between status queries.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimer replaces the delay primitive.
func WithTimer(timer Timer) Option {
	return func(c *Controller) {
		if timer != nil {
			c.timer = timer
		}
	}
}

// WithLogger sets the logger used for workflow events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTracer sets the tracer used for submission and tick spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithRequestDefaults replaces the parameter template merged into every
// submission. The template's prompt is ignored.
func WithRequestDefaults(req mystic.GenerationRequest) Option {
	return func(c *Controller) {
		c.template = req
	}
}

// Controller drives the submit-then-poll protocol. It keeps no per-job state;
// everything a loop needs lives on the Job handle.
type Controller struct {
	api      TaskAPI
	interval time.Duration
	timer    Timer
	logger   zerolog.Logger
	tracer   trace.Tracer
	template mystic.GenerationRequest
}

// NewController builds a controller around api.
func NewController(api TaskAPI, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		interval: DefaultInterval,
		timer:    newTimer,
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
		template: mystic.NewGenerationRequest(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends one generation request and returns a handle ready for Poll.
func (c *Controller) Submit(ctx context.Context, prompt string) (*Job, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	req := c.template.WithPrompt(prompt)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	ctx, span := c.tracer.Start(ctx, "workflow.submit")
	defer span.End()

	task, err := c.api.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, mystic.ErrMissingAPIKey) {
			err = fmt.Errorf("%w: %w", ErrConfiguration, err)
		} else {
			err = fmt.Errorf("%w: %w", ErrSubmission, err)
		}
		recordError(span, err)
		c.logger.Error().Err(err).Msg("generation submission failed")
		return nil, err
	}
	if strings.TrimSpace(task.TaskID) == "" {
		err := fmt.Errorf("%w: %w", ErrInitiation, mystic.ErrMissingTaskID)
		recordError(span, err)
		c.logger.Warn().Str("status", string(task.Status)).Msg("generation response carried no task id")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("task_id", task.TaskID),
		attribute.String("status", string(task.Status)),
	)
	c.logger.Info().Str("task_id", task.TaskID).Str("status", string(task.Status)).Msg("generation submitted")

	job := &Job{TaskID: task.TaskID, SubmittedAt: time.Now().UTC()}
	job.state.Store(int32(StateSubmitted))
	return job, nil
}

// Poll queries the task behind job every interval until it reaches a
// terminal state. The returned channel yields updates in tick order and is
// closed after the terminal update, or once ctx is cancelled. A job can be
// polled only once: later calls get an already closed channel.
func (c *Controller) Poll(ctx context.Context, job *Job) <-chan Update {
	out := make(chan Update)
	if job == nil || !job.begin() {
		close(out)
		return out
	}
	go c.run(ctx, job, out)
	return out
}

func (c *Controller) run(ctx context.Context, job *Job, out chan<- Update) {
	defer close(out)
	defer job.finish()

	logger := c.logger.With().Str("task_id", job.TaskID).Logger()
	for attempt := 1; ; attempt++ {
		fire, stop := c.timer(c.interval)
		select {
		case <-ctx.Done():
			stop()
			logger.Debug().Int("attempt", attempt).Msg("polling abandoned")
			return
		case <-fire:
		}
		// A cancel that raced the timer still wins.
		if ctx.Err() != nil {
			logger.Debug().Int("attempt", attempt).Msg("polling abandoned")
			return
		}

		update := c.tick(ctx, job, attempt)
		if ctx.Err() != nil {
			logger.Debug().Int("attempt", attempt).Msg("dropping update of abandoned job")
			return
		}

		select {
		case out <- update:
		case <-ctx.Done():
			return
		}

		if update.Terminal() {
			event := logger.Info()
			if update.Err != nil {
				event = logger.Warn().Err(update.Err)
			}
			event.Int("attempts", attempt).Str("kind", string(update.Kind)).Msg("generation finished")
			return
		}
	}
}

func (c *Controller) tick(ctx context.Context, job *Job, attempt int) Update {
	ctx, span := c.tracer.Start(ctx, "workflow.tick", trace.WithAttributes(
		attribute.String("task_id", job.TaskID),
		attribute.Int("attempt", attempt),
	))
	defer span.End()

	update := Update{TaskID: job.TaskID, Attempt: attempt}

	// A dispatched query runs to completion even if the caller goes away.
	task, err := c.api.Status(context.WithoutCancel(ctx), job.TaskID)
	if err == nil && !task.Status.Known() {
		err = fmt.Errorf("unknown task status %q", task.Status)
	}
	if err != nil {
		update.Kind = KindPollError
		update.Err = fmt.Errorf("%w: %w", ErrPoll, err)
		update.Message = MessagePollError
		recordError(span, update.Err)
		return update
	}

	update.Status = task.Status
	span.SetAttributes(attribute.String("status", string(task.Status)))
	c.logger.Debug().Str("task_id", job.TaskID).Int("attempt", attempt).Str("status", string(task.Status)).Msg("generation status")

	switch task.Status {
	case mystic.StatusCompleted:
		artifact, nsfw, ok := task.FirstArtifact()
		if !ok {
			update.Kind = KindNoArtifact
			update.Message = MessageNoArtifact
			return update
		}
		update.Kind = KindCompleted
		update.Artifact = artifact
		update.NSFW = nsfw
		update.Message = MessageCompleted
	case mystic.StatusFailed:
		update.Kind = KindFailed
		update.Err = fmt.Errorf("%w: task %s", ErrRemoteFailure, job.TaskID)
		update.Message = MessageFailed
		recordError(span, update.Err)
	default:
		update.Kind = KindProgress
		update.Message = MessageGenerating
	}
	return update
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
