// Package workhandler runs row jobs off the interactive goroutine.
//
// Jobs are started on an errgroup with a concurrency limit. A job never
// fails the group: its result or error is handed to exactly one of the
// supplied callbacks, and that callback is marshalled through a Dispatcher so
// it runs where the table state lives. One failing row therefore never stops
// its siblings.
package workhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var ErrJobPanicked = errors.New("job panicked")

const defaultConcurrency = 4

// Handler dispatches jobs to worker goroutines.
type Handler struct {
	ctx         context.Context
	grp         *errgroup.Group
	dispatcher  Dispatcher
	logger      *slog.Logger
	concurrency int
}

type Option func(h *Handler)

// WithConcurrency bounds the number of jobs running at once.
func WithConcurrency(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a handler whose callbacks are sent to dispatcher.
func New(ctx context.Context, dispatcher Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		ctx:         ctx,
		grp:         &errgroup.Group{},
		dispatcher:  dispatcher,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.grp.SetLimit(h.concurrency)

	return h
}

// Process starts fn on a worker. Once fn settles, onDone or onErr is
// dispatched, never both. Either callback may be nil.
func Process[T any](h *Handler, name string, fn func(ctx context.Context) (T, error), onDone func(T), onErr func(error)) {
	h.grp.Go(func() error {
		res, err := safeRun(h.ctx, fn)
		if err != nil {
			h.logger.Warn("job failed", "job", name, "error", err)
			if onErr != nil {
				h.dispatcher.Dispatch(func() { onErr(err) })
			}

			return nil
		}
		h.logger.Debug("job finished", "job", name)
		if onDone != nil {
			h.dispatcher.Dispatch(func() { onDone(res) })
		}

		return nil
	})
}

func safeRun[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrJobPanicked, fmt.Sprint(r))
		}
	}()

	return fn(ctx)
}

// Wait blocks until every started job has settled and its callback has been
// dispatched. Callbacks may still be queued in the dispatcher.
func (h *Handler) Wait() error {
	return h.grp.Wait()
}
