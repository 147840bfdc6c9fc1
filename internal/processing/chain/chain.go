package chain

import (
	"context"
	"fmt"

	"grain-analysis/internal/opencv/safe"
)

// ProcessingStep turns one image into a new one. Implementations must not
// modify or close their input.
type ProcessingStep interface {
	Apply(ctx context.Context, input *safe.Mat) (*safe.Mat, error)
	Name() string
}

// MeasuredStep is a step that also yields a scalar about its output, such as
// the level a threshold step selected. The chain records it on the Stage.
type MeasuredStep interface {
	ProcessingStep
	ApplyMeasured(ctx context.Context, input *safe.Mat) (*safe.Mat, float64, error)
}

type ProcessingChain struct {
	steps []ProcessingStep
}

func NewProcessingChain(steps ...ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

// Stage is the output of one executed step. Value is set only for
// MeasuredStep steps.
type Stage struct {
	Name     string
	Output   *safe.Mat
	Value    float64
	HasValue bool
}

// Trace keeps every stage output of one run, in step order. The caller owns
// the Mats and releases them with Close.
type Trace struct {
	Stages []Stage
}

// Output returns the last stage output, or nil for an empty trace.
func (t *Trace) Output() *safe.Mat {
	if t == nil || len(t.Stages) == 0 {
		return nil
	}
	return t.Stages[len(t.Stages)-1].Output
}

// Value returns the scalar recorded by a MeasuredStep stage.
func (t *Trace) Value(name string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	for _, s := range t.Stages {
		if s.Name == name {
			return s.Value, s.HasValue
		}
	}
	return 0, false
}

// Stage looks up a stage output by step name.
func (t *Trace) Stage(name string) (*safe.Mat, bool) {
	if t == nil {
		return nil, false
	}
	for _, s := range t.Stages {
		if s.Name == name {
			return s.Output, true
		}
	}
	return nil, false
}

func (t *Trace) Close() {
	if t == nil {
		return
	}
	for _, s := range t.Stages {
		s.Output.Close()
	}
	t.Stages = nil
}

// Execute runs every step on the previous step's output. The input Mat is
// never closed. On error or cancellation all stage outputs produced so far
// are released.
func (pc *ProcessingChain) Execute(ctx context.Context, input *safe.Mat) (*Trace, error) {
	if err := safe.ValidateMatForOperation(input, "chain execution"); err != nil {
		return nil, err
	}

	trace := &Trace{Stages: make([]Stage, 0, len(pc.steps))}
	current := input

	for _, step := range pc.steps {
		select {
		case <-ctx.Done():
			trace.Close()
			return nil, ctx.Err()
		default:
		}

		stage := Stage{Name: step.Name()}
		var (
			result *safe.Mat
			err    error
		)
		if measured, ok := step.(MeasuredStep); ok {
			result, stage.Value, err = measured.ApplyMeasured(ctx, current)
			stage.HasValue = err == nil
		} else {
			result, err = step.Apply(ctx, current)
		}
		if err != nil {
			trace.Close()
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
		if result == nil {
			trace.Close()
			return nil, fmt.Errorf("step %s returned no image", step.Name())
		}

		stage.Output = result
		trace.Stages = append(trace.Stages, stage)
		current = result
	}

	return trace, nil
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
