// Package batch processes table rows end to end: each row is composed into
// a state, assembled into reduction steps and run on a concurrent pipeline.
//
// Composition and assembly happen on the caller's goroutine, which must own
// the table. Reductions run on pipeline workers and report back through the
// dispatcher, so row status only ever changes where the table lives.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/director"
	"github.com/askiada/go-reduction/pkg/pipeline"
	"github.com/askiada/go-reduction/pkg/pipeline/drawer"
	"github.com/askiada/go-reduction/pkg/pipeline/measure"
	"github.com/askiada/go-reduction/pkg/pipeline/model"
	"github.com/askiada/go-reduction/pkg/reduction"
	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/table"
	"github.com/askiada/go-reduction/pkg/workhandler"
)

var ErrMissingDependency = errors.New("runner dependency must be set")

const defaultConcurrency = 4

// Runner drives rows of a table through composition and reduction.
type Runner struct {
	table       *table.Table
	director    *director.Director
	reducer     *reduction.Reducer
	dispatcher  workhandler.Dispatcher
	logger      *slog.Logger
	concurrency int
	drawPath    string
}

type Option func(r *Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConcurrency bounds the number of rows reduced at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDrawing writes a DOT drawing of each batch pipeline, labelled with
// step timings, to path once the batch finishes.
func WithDrawing(path string) Option {
	return func(r *Runner) {
		r.drawPath = path
	}
}

// NewRunner creates a runner reporting row status through dispatcher.
func NewRunner(tbl *table.Table, dir *director.Director, reducer *reduction.Reducer, dispatcher workhandler.Dispatcher, opts ...Option) (*Runner, error) {
	if tbl == nil || dir == nil || reducer == nil || dispatcher == nil {
		return nil, ErrMissingDependency
	}
	r := &Runner{
		table:       tbl,
		director:    dir,
		reducer:     reducer,
		dispatcher:  dispatcher,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

type job struct {
	id    uuid.UUID
	name  string
	st    *state.AllStates
	steps []*reduction.Step
}

type outcome struct {
	id  uuid.UUID
	ws  reduction.Workspace
	err error
}

// Batch is a set of rows being reduced.
type Batch struct {
	done  chan struct{}
	err   error
	total int
}

// Wait blocks until every row of the batch has been reduced and its status
// dispatched. The error only reports a pipeline failure, row failures are
// recorded on the rows.
func (b *Batch) Wait() error {
	<-b.done

	return b.err
}

// Rows is the number of rows handed to the pipeline. Rows that failed to
// compose are not counted.
func (b *Batch) Rows() int {
	return b.total
}

// ProcessAll processes every row with a sample scatter run.
func (r *Runner) ProcessAll(ctx context.Context, top state.TopLevel) (*Batch, error) {
	return r.ProcessRows(ctx, r.table.ValidRowIndices(), top)
}

// ProcessRows sets the rows at indices to Processing, then composes and
// assembles each of them. A row that cannot be composed or assembled is set
// to Error straight away. The others are reduced in the background and
// settle through the dispatcher. An index outside the table fails the call
// before any row changes.
func (r *Runner) ProcessRows(ctx context.Context, indices []int, top state.TopLevel) (*Batch, error) {
	rows := make([]*table.RowEntry, len(indices))
	for i, index := range indices {
		row, err := r.table.TableEntry(index)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}

	jobs := make([]job, 0, len(rows))
	for i, row := range rows {
		index := indices[i]
		err := r.table.SetRowToProcessing(index)
		if err != nil {
			return nil, err
		}
		jb, err := r.prepare(row, top)
		if err != nil {
			r.logger.Info("row rejected", slog.Int("row", index), slog.String("error", err.Error()))
			_ = r.table.SetRowToError(index, err.Error())

			continue
		}
		jobs = append(jobs, jb)
	}

	batch := &Batch{done: make(chan struct{}), total: len(jobs)}
	if len(jobs) == 0 {
		close(batch.done)

		return batch, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	pipe, err := r.pipeline(ctx)
	if err != nil {
		cancel()
		r.failJobs(jobs, err)

		return nil, err
	}
	reported, err := r.wire(pipe, jobs)
	if err != nil {
		cancel()
		r.failJobs(jobs, err)

		return nil, err
	}
	go func() {
		defer close(batch.done)
		defer cancel()
		batch.err = pipe.Run()
		if batch.err != nil {
			r.logger.Error("batch pipeline failed", slog.String("error", batch.err.Error()))
			r.settleUnreported(jobs, reported, batch.err)
		}
	}()

	return batch, nil
}

func (r *Runner) prepare(row *table.RowEntry, top state.TopLevel) (job, error) {
	st, err := r.director.CreateState(row, top)
	if err != nil {
		return job{}, err
	}
	steps, err := r.reducer.Build(st)
	if err != nil {
		return job{}, err
	}

	return job{id: row.ID, name: st.Data.OutputName, st: st, steps: steps}, nil
}

func (r *Runner) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	opts := []model.PipelineOption{}
	if r.drawPath != "" {
		m := measure.NewDefaultMeasure()
		opts = append(opts,
			measure.PipelineMeasure(m),
			drawer.PipelineDrawer(drawer.NewFileDrawer(r.drawPath), m),
		)
	}
	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create batch pipeline")
	}

	return pipe, nil
}

// reportedSet records the rows whose outcome has been dispatched.
type reportedSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func (s *reportedSet) add(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *reportedSet) has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]

	return ok
}

// wire builds rows -> reduce -> report. A failing row never fails the
// pipeline, its error travels to the report sink with the row.
func (r *Runner) wire(pipe *pipeline.Pipeline, jobs []job) (*reportedSet, error) {
	rows, err := pipeline.AddRootStep(pipe, "rows", func(ctx context.Context, rootChan chan<- job) error {
		for _, jb := range jobs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- jb:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add rows step")
	}

	reduced, err := pipeline.AddStepOneToOne(pipe, "reduce", rows, func(ctx context.Context, jb job) (outcome, error) {
		r.logger.Debug("reducing row", slog.String("output", jb.name), slog.Int("steps", len(jb.steps)))
		ws, err := reduction.Run(ctx, jb.st, jb.steps)

		return outcome{id: jb.id, ws: ws, err: err}, nil
	}, pipeline.StepConcurrency[outcome](r.concurrency))
	if err != nil {
		return nil, errors.Wrap(err, "unable to add reduce step")
	}

	reported := &reportedSet{ids: make(map[uuid.UUID]struct{}, len(jobs))}
	err = pipeline.AddSink(pipe, "report", reduced, func(_ context.Context, out outcome) error {
		reported.add(out.id)
		r.dispatcher.Dispatch(func() {
			r.settle(out.id, out.ws, out.err)
		})

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add report sink")
	}

	return reported, nil
}

// settle runs on the table owner. Rows removed while they were reduced are
// skipped.
func (r *Runner) settle(id uuid.UUID, ws reduction.Workspace, err error) {
	index, ok := r.table.IndexOf(id)
	if !ok {
		r.logger.Debug("result for removed row dropped", slog.String("row_id", id.String()))

		return
	}
	if err != nil {
		_ = r.table.SetRowToError(index, err.Error())

		return
	}
	_ = r.table.SetRowToProcessed(index, fmt.Sprintf("reduced to %s", ws.Name))
}

// failJobs settles jobs on the calling goroutine when the batch could not
// start.
func (r *Runner) failJobs(jobs []job, cause error) {
	for _, jb := range jobs {
		r.settle(jb.id, reduction.Workspace{}, cause)
	}
}

func (r *Runner) settleUnreported(jobs []job, reported *reportedSet, cause error) {
	for _, jb := range jobs {
		if reported.has(jb.id) {
			continue
		}
		id := jb.id
		r.dispatcher.Dispatch(func() {
			r.settle(id, reduction.Workspace{}, errors.Wrap(cause, "batch stopped"))
		})
	}
}
