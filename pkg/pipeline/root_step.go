package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/pipeline/model"
)

// AddRootStep adds a step that feeds the pipeline. stepFn pushes values to
// rootChan and the channel is closed when it returns.
func AddRootStep[O any](p *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}
	for _, opt := range p.opts {
		err := opt.PrepareStep(model.StartStep, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	errC := make(chan error, 1)
	go func() {
		defer func() {
			if !step.KeepOpen {
				close(step.Output)
			}
			close(errC)
		}()
		err := stepFn(p.ctx, step.Output)
		if err != nil {
			errC <- err
		}
	}()
	p.errcList.add(newErrorChan(name, errC))

	return step, nil
}
