package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/pipeline/model"
)

func TestRunOneToOne(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent int
		want       int
	}{
		"sequential":     {concurrent: 1, want: 1},
		"sequential v2":  {concurrent: 0, want: 1},
		"concurrent 2":   {concurrent: 2, want: 2},
		"concurrent 100": {concurrent: 100, want: 100},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			input := &model.Step[int]{Output: createInputChan(t, 10)}
			got := make(chan []int, 1)
			output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Concurrent: tc.concurrent}}

			go func() {
				got <- processOutputChan(t, output.Output)
			}()

			var outputs atomic.Int32
			err := runOneToOne(ctx, input, output, func(_ context.Context, i int) (int, error) {
				return i * 2, nil
			}, func(_, _ time.Duration) error {
				outputs.Add(1)

				return nil
			})
			close(output.Output)
			require.NoError(t, err)

			assert.ElementsMatch(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}, <-got)
			assert.Equal(t, int32(10), outputs.Load())
			assert.Equal(t, tc.want, output.Details.Concurrent)
		})
	}
}

func TestRunOneToOneCancelInput(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent int
	}{
		"sequential":   {concurrent: 1},
		"concurrent 4": {concurrent: 4},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			input := &model.Step[int]{Output: createInputChanWithCancel(t, 10, 5, cancel)}
			output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Concurrent: tc.concurrent}}

			go func() {
				processOutputChan(t, output.Output)
			}()

			err := runOneToOne(ctx, input, output, func(_ context.Context, i int) (int, error) {
				return i, nil
			}, nil)
			close(output.Output)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestRunOneToOneError(t *testing.T) {
	t.Parallel()

	input := &model.Step[int]{Output: createInputChan(t, 10)}
	output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Concurrent: 3}}

	go func() {
		processOutputChan(t, output.Output)
	}()

	err := runOneToOne(t.Context(), input, output, func(_ context.Context, i int) (int, error) {
		if i == 4 {
			return 0, assert.AnError
		}

		return i, nil
	}, nil)
	close(output.Output)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunOneToOneHookError(t *testing.T) {
	t.Parallel()

	input := &model.Step[int]{Output: createInputChan(t, 3)}
	output := &model.Step[int]{Output: make(chan int), Details: &model.StepInfo{Concurrent: 1}}

	go func() {
		processOutputChan(t, output.Output)
	}()

	err := runOneToOne(t.Context(), input, output, func(_ context.Context, i int) (int, error) {
		return i, nil
	}, func(_, _ time.Duration) error {
		return assert.AnError
	})
	close(output.Output)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestInputDetails(t *testing.T) {
	t.Parallel()

	assert.Same(t, model.StartStep, inputDetails(&model.Step[int]{}))

	info := &model.StepInfo{Name: "reduce"}
	assert.Same(t, info, inputDetails(&model.Step[int]{Details: info}))
}
