package deploy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one named unit of a runbook.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError reports the step that stopped a runbook.
type StepError struct {
	Runbook string
	Step    string
	Index   int
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: step %d (%s) failed: %v", e.Runbook, e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runbook is an ordered list of steps. Execution stops at the first
// failure; completed steps are not rolled back and nothing is retried.
type Runbook struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// NewRunbook creates a runbook.
func NewRunbook(name string, logger *zap.Logger, steps ...Step) *Runbook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runbook{name: name, steps: steps, logger: logger}
}

// Add appends steps.
func (rb *Runbook) Add(steps ...Step) *Runbook {
	rb.steps = append(rb.steps, steps...)
	return rb
}

// Name returns the runbook name.
func (rb *Runbook) Name() string {
	return rb.name
}

// Steps returns the step names in order.
func (rb *Runbook) Steps() []string {
	names := make([]string, len(rb.steps))
	for i, s := range rb.steps {
		names[i] = s.Name
	}
	return names
}

// Execute runs every step in order.
func (rb *Runbook) Execute(ctx context.Context) error {
	start := time.Now()
	for i, step := range rb.steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Runbook: rb.name, Step: step.Name, Index: i, Err: err}
		}

		rb.logger.Info("running step",
			zap.String("runbook", rb.name),
			zap.Int("step", i+1),
			zap.Int("of", len(rb.steps)),
			zap.String("name", step.Name))

		if err := step.Run(ctx); err != nil {
			rb.logger.Error("step failed",
				zap.String("runbook", rb.name),
				zap.String("name", step.Name),
				zap.Error(err))
			return &StepError{Runbook: rb.name, Step: step.Name, Index: i, Err: err}
		}
	}
	rb.logger.Info("runbook completed",
		zap.String("runbook", rb.name),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// CommandStep wraps a single external command.
func CommandStep(r Runner, name, command string, args ...string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context) error {
			_, err := r.Run(ctx, command, args...)
			return err
		},
	}
}
