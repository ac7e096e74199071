package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDocumentLoad wraps failures to open or identify a document. It is
// the only error class that fails a whole scan; everything after loading
// is isolated to its page or URL.
var ErrDocumentLoad = errors.New("document load failed")

// Step is one stage of the scan pipeline. Steps execute in sequence over
// the shared scan state.
//
// A step returns an error only for scan-fatal conditions (in practice,
// only the loading step does). Page- and URL-scoped failures are recorded
// in the scan state and the step returns nil, so later stages still run
// and partial results survive.
type Step interface {
	// Do executes the step against the scan state.
	Do(ctx context.Context, scan *Scan) error

	// Name returns the step's name for logging.
	Name() string

	// Stage returns the state machine stage this step represents.
	Stage() Stage
}

// Pipeline executes the scan steps in order and tracks the state machine.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline. Steps are added with AddSteps;
// DefaultPipeline wires the standard scan sequence.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends steps in execution order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs the pipeline over the scan state.
//
// Design decision: Execute does not abort between steps on context
// cancellation. Each step is context-aware and degrades its own work
// (marking unfinished pages and URLs with timeout-class errors), and the
// aggregating step must still run so that completed work is returned as
// a partial result. The only error path out of Execute is a fatal
// document load failure.
func (p *Pipeline) Execute(ctx context.Context, scan *Scan) error {
	for _, step := range p.steps {
		scan.Stage = step.Stage()

		p.logger.Info("executing step",
			"step", step.Name(),
			"document", scan.Path,
		)

		if err := step.Do(ctx, scan); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"document", scan.Path,
				"error", err,
			)
			scan.Stage = StageFailed
			scan.Err = err
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"document", scan.Path,
		)
	}

	scan.Stage = StageDone
	return nil
}
