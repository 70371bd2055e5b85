package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-reduction/pkg/pipeline/model"
)

type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many goroutines consume the step input.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// StepKeepOpen leaves the step output open once the step is done.
func StepKeepOpen[O any]() StepOption[O] {
	return func(s *model.Step[O]) {
		s.KeepOpen = true
	}
}

type onOutputFn func(iterationDuration, computationDuration time.Duration) error

func sequentialOneToOne[I any, O any](ctx context.Context, goIdx int, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error), onOutput onOutputFn) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)

			// Check the context again so running goroutines stop feeding the
			// next step once the pipeline is cancelled.
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
			case output.Output <- out:
			}
			if onOutput != nil {
				err := onOutput(time.Since(start), endFn)
				if err != nil {
					return errors.Wrapf(err, "go routine %d", goIdx)
				}
			}
		}
	}
}

func concurrentOneToOne[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error), onOutput onOutputFn) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	for goIdx := range output.Details.Concurrent {
		errGrp.Go(func() error {
			return sequentialOneToOne(dCtx, goIdx, input, output, oneToOneFn, onOutput)
		})
	}

	return errGrp.Wait()
}

func runOneToOne[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error), onOutput onOutputFn) error {
	if output.Details.Concurrent <= 1 {
		output.Details.Concurrent = 1

		return sequentialOneToOne(ctx, 0, input, output, oneToOneFn, onOutput)
	}

	return concurrentOneToOne(ctx, input, output, oneToOneFn, onOutput)
}

// AddStepOneToOne adds a step producing one output per input. With
// StepConcurrency above one, outputs may be reordered.
func AddStepOneToOne[I any, O any](p *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.NormalStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}
	parent := inputDetails(input)
	for _, opt := range p.opts {
		err := opt.PrepareStep(parent, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	onOutput := func(iterationDuration, computationDuration time.Duration) error {
		for _, opt := range p.opts {
			err := opt.OnStepOutput(parent, step.Details, iterationDuration, computationDuration)
			if err != nil {
				return errors.Wrap(err, "unable to run on step output function")
			}
		}

		return nil
	}

	errC := make(chan error, 1)
	go func() {
		defer func() {
			if !step.KeepOpen {
				close(step.Output)
			}
			close(errC)
		}()
		err := runOneToOne(p.ctx, input, step, oneToOneFn, onOutput)
		if err != nil {
			errC <- err
		}
	}()
	p.errcList.add(newErrorChan(name, errC))

	return step, nil
}

// inputDetails returns the details of a step, standing in StartStep for
// channels built outside the pipeline.
func inputDetails[I any](input *model.Step[I]) *model.StepInfo {
	if input.Details == nil {
		return model.StartStep
	}

	return input.Details
}
