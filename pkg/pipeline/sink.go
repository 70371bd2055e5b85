package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/pipeline/model"
)

// AddSink consumes the output of input one value at a time. The first error
// returned by sinkFn stops the sink and fails the pipeline.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	if pipe == nil {
		return ErrPipelineMustBeSet
	}
	if input == nil {
		return ErrInputMustBeSet
	}
	step := &model.StepInfo{
		Type:       model.SinkStepType,
		Name:       name,
		Concurrent: 1,
	}
	parent := inputDetails(input)
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(parent, step)
		if err != nil {
			return errors.Wrap(err, "unable to run before sink function")
		}
	}

	errC := make(chan error, 1)
	go func() {
		defer close(errC)
		err := runSink(pipe, parent, step, input, sinkFn)
		if err != nil {
			errC <- err

			return
		}
		for _, opt := range pipe.opts {
			err := opt.AfterSink(step, time.Since(pipe.startTime))
			if err != nil {
				errC <- errors.Wrap(err, "unable to run after sink function")

				return
			}
		}
	}()
	pipe.errcList.add(newErrorChan(name, errC))

	return nil
}

func runSink[I any](pipe *Pipeline, parent, step *model.StepInfo, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	for {
		start := time.Now()
		select {
		case <-pipe.ctx.Done():
			return pipe.ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			err := sinkFn(pipe.ctx, in)
			if err != nil {
				return err
			}
			endFn := time.Since(startFn)
			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(parent, step, time.Since(start), endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on sink output function")
				}
			}
		}
	}
}
