// Package beamcentre drives the search for the beam centre of a row. The
// numerical search is done by an external Solver, this package owns its call
// contract and the options that feed it.
package beamcentre

import (
	"context"
	"log/slog"
	"math"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/workhandler"
)

var (
	ErrNoDirection   = errors.New("no search direction selected")
	ErrInvalidOption = errors.New("invalid beam centre option")
	// ErrNotConverged is returned by solvers that ran out of iterations.
	ErrNotConverged = errors.New("beam centre search did not converge")
)

// Direction restricts the axes the search moves along.
type Direction int

const (
	All Direction = iota
	LeftRight
	UpDown
)

func (d Direction) String() string {
	switch d {
	case All:
		return "All"
	case LeftRight:
		return "Left_Right"
	case UpDown:
		return "Up_Down"
	default:
		return "Unknown"
	}
}

// Options is the beam centre settings box. Radii are in millimetres.
type Options struct {
	RMin          float64
	RMax          float64
	MaxIterations int
	Tolerance     float64
	LeftRight     bool
	UpDown        bool
	LABPos1       float64
	LABPos2       float64
	HABPos1       float64
	HABPos2       float64
}

// DefaultOptions returns the settings shown before the user edits anything.
func DefaultOptions() Options {
	return Options{
		RMin:          60,
		RMax:          280,
		MaxIterations: 20,
		Tolerance:     0.000125,
		LeftRight:     true,
		UpDown:        true,
	}
}

// Direction maps the two axis toggles to a search direction.
func (o Options) Direction() (Direction, error) {
	switch {
	case o.LeftRight && o.UpDown:
		return All, nil
	case o.LeftRight:
		return LeftRight, nil
	case o.UpDown:
		return UpDown, nil
	default:
		return All, ErrNoDirection
	}
}

func (o Options) validate() error {
	switch {
	case o.RMin < 0 || math.IsNaN(o.RMin):
		return errors.Wrapf(ErrInvalidOption, "r min %v", o.RMin)
	case !(o.RMax > o.RMin) || math.IsInf(o.RMax, 0):
		return errors.Wrapf(ErrInvalidOption, "r max %v must exceed r min %v", o.RMax, o.RMin)
	case o.MaxIterations <= 0:
		return errors.Wrapf(ErrInvalidOption, "max iterations %d", o.MaxIterations)
	case !(o.Tolerance > 0) || math.IsInf(o.Tolerance, 0):
		return errors.Wrapf(ErrInvalidOption, "tolerance %v", o.Tolerance)
	}

	return nil
}

// Request is what a solver is asked to do. The search starts from Start.
type Request struct {
	RMin          float64
	RMax          float64
	MaxIterations int
	Tolerance     float64
	Direction     Direction
	Start         Centre
}

// Centre is a position on the detector plane.
type Centre struct {
	Pos1 float64
	Pos2 float64
}

// Solver searches for the beam centre. It owns st and must return
// ErrNotConverged, possibly wrapped, when the iteration budget runs out.
type Solver interface {
	FindCentre(ctx context.Context, st *state.AllStates, req Request) (Centre, error)
}

// Finder runs a Solver and keeps the options model in sync with its results.
type Finder struct {
	solver  Solver
	options Options
	logger  *slog.Logger
}

type FinderOption func(f *Finder)

func WithOptions(o Options) FinderOption {
	return func(f *Finder) {
		f.options = o
	}
}

func WithLogger(logger *slog.Logger) FinderOption {
	return func(f *Finder) {
		f.logger = logger
	}
}

func NewFinder(solver Solver, opts ...FinderOption) *Finder {
	f := &Finder{
		solver:  solver,
		options: DefaultOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Options returns the current model.
func (f *Finder) Options() Options {
	return f.options
}

// SetOptions replaces the model, typically from the settings box.
func (f *Finder) SetOptions(o Options) {
	f.options = o
}

// Request validates the model and turns it into a solver request.
func (f *Finder) Request() (Request, error) {
	o := f.options
	if err := o.validate(); err != nil {
		return Request{}, err
	}
	dir, err := o.Direction()
	if err != nil {
		return Request{}, err
	}

	return Request{
		RMin:          o.RMin,
		RMax:          o.RMax,
		MaxIterations: o.MaxIterations,
		Tolerance:     o.Tolerance,
		Direction:     dir,
		Start:         Centre{Pos1: o.LABPos1, Pos2: o.LABPos2},
	}, nil
}

// Find runs the solver on a copy of st and stores the result as both the LAB
// and HAB positions of the model.
func (f *Finder) Find(ctx context.Context, st *state.AllStates) (Centre, error) {
	req, err := f.Request()
	if err != nil {
		return Centre{}, err
	}
	centre, err := f.solver.FindCentre(ctx, st.Clone(), req)
	if err != nil {
		return Centre{}, errors.Wrap(err, "find beam centre")
	}
	f.update(centre)

	return centre, nil
}

func (f *Finder) update(c Centre) {
	f.options.LABPos1, f.options.LABPos2 = c.Pos1, c.Pos2
	f.options.HABPos1, f.options.HABPos2 = c.Pos1, c.Pos2
}

// FindAsync runs the search on h. The request is built and st copied before
// returning, onDone and onErr run on h's dispatcher, where the model is
// updated before onDone is called.
func (f *Finder) FindAsync(h *workhandler.Handler, st *state.AllStates, onDone func(Centre), onErr func(error)) error {
	req, err := f.Request()
	if err != nil {
		return err
	}
	st = st.Clone()

	workhandler.Process(h, "beam centre",
		func(ctx context.Context) (Centre, error) {
			return f.solver.FindCentre(ctx, st, req)
		},
		func(c Centre) {
			f.update(c)
			if onDone != nil {
				onDone(c)
			}
		},
		func(err error) {
			f.logger.Warn("beam centre search failed", slog.String("error", err.Error()))
			if onErr != nil {
				onErr(err)
			}
		},
	)

	return nil
}

// CentreInformation returns the detector centres held by st, keyed LAB1,
// LAB2, HAB1 and HAB2. Missing detectors are left out.
func CentreInformation(st *state.AllStates) map[string]float64 {
	res := make(map[string]float64, 4)
	if st == nil {
		return res
	}
	for _, name := range []string{state.DetectorLAB, state.DetectorHAB} {
		det, ok := st.Move.Detectors[name]
		if !ok {
			continue
		}
		res[name+"1"] = det.SampleCentrePos1
		res[name+"2"] = det.SampleCentrePos2
	}

	return res
}
