package beamcentre_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/beamcentre"
	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/workhandler"
)

type fakeSolver struct {
	centre beamcentre.Centre
	err    error
	got    beamcentre.Request
	st     *state.AllStates
}

func (f *fakeSolver) FindCentre(_ context.Context, st *state.AllStates, req beamcentre.Request) (beamcentre.Centre, error) {
	f.got = req
	f.st = st
	// Solvers own their copy and may move detectors around.
	st.Move.Detectors[state.DetectorLAB] = state.DetectorState{SampleCentrePos1: 99}

	return f.centre, f.err
}

func sans2d(t *testing.T) *state.AllStates {
	t.Helper()

	s, err := state.Defaults("SANS2D")
	require.NoError(t, err)

	return s
}

func TestDirection(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		leftRight, upDown bool
		want              beamcentre.Direction
		err               error
	}{
		"both":       {leftRight: true, upDown: true, want: beamcentre.All},
		"left right": {leftRight: true, want: beamcentre.LeftRight},
		"up down":    {upDown: true, want: beamcentre.UpDown},
		"none":       {err: beamcentre.ErrNoDirection},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := beamcentre.Options{LeftRight: tc.leftRight, UpDown: tc.upDown}.Direction()
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	tcs := map[string]func(o *beamcentre.Options){
		"negative r min":    func(o *beamcentre.Options) { o.RMin = -1 },
		"r max below r min": func(o *beamcentre.Options) { o.RMax = 10 },
		"no iterations":     func(o *beamcentre.Options) { o.MaxIterations = 0 },
		"zero tolerance":    func(o *beamcentre.Options) { o.Tolerance = 0 },
	}

	for name, mutate := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			o := beamcentre.DefaultOptions()
			mutate(&o)
			f := beamcentre.NewFinder(&fakeSolver{}, beamcentre.WithOptions(o))
			_, err := f.Request()
			assert.ErrorIs(t, err, beamcentre.ErrInvalidOption)
		})
	}
}

func TestFindUpdatesModel(t *testing.T) {
	t.Parallel()

	solver := &fakeSolver{centre: beamcentre.Centre{Pos1: 0.12, Pos2: -0.03}}
	o := beamcentre.DefaultOptions()
	o.UpDown = false
	o.LABPos1 = 0.1
	f := beamcentre.NewFinder(solver, beamcentre.WithOptions(o))
	st := sans2d(t)

	got, err := f.Find(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, beamcentre.Centre{Pos1: 0.12, Pos2: -0.03}, got)
	assert.Equal(t, beamcentre.LeftRight, solver.got.Direction)
	assert.Equal(t, 0.1, solver.got.Start.Pos1)
	assert.Equal(t, 20, solver.got.MaxIterations)
	assert.NotSame(t, st, solver.st)
	assert.Equal(t, 0.0, st.Move.Detectors[state.DetectorLAB].SampleCentrePos1)

	model := f.Options()
	assert.Equal(t, 0.12, model.LABPos1)
	assert.Equal(t, -0.03, model.LABPos2)
	assert.Equal(t, 0.12, model.HABPos1)
	assert.Equal(t, -0.03, model.HABPos2)
}

func TestFindNotConverged(t *testing.T) {
	t.Parallel()

	f := beamcentre.NewFinder(&fakeSolver{err: beamcentre.ErrNotConverged})
	_, err := f.Find(context.Background(), sans2d(t))
	require.ErrorIs(t, err, beamcentre.ErrNotConverged)
	assert.Equal(t, 0.0, f.Options().LABPos1)
}

func TestFindAsync(t *testing.T) {
	t.Parallel()

	queue := workhandler.NewEventQueue()
	h := workhandler.New(context.Background(), queue)
	f := beamcentre.NewFinder(&fakeSolver{centre: beamcentre.Centre{Pos1: 1, Pos2: 2}})

	var got beamcentre.Centre
	require.NoError(t, f.FindAsync(h, sans2d(t), func(c beamcentre.Centre) { got = c }, nil))
	require.NoError(t, h.Wait())
	assert.Equal(t, 0.0, f.Options().LABPos1, "model changes wait for the dispatcher")

	queue.ProcessEvents()
	assert.Equal(t, beamcentre.Centre{Pos1: 1, Pos2: 2}, got)
	assert.Equal(t, 1.0, f.Options().HABPos1)
}

func TestFindAsyncRejectsBadOptions(t *testing.T) {
	t.Parallel()

	h := workhandler.New(context.Background(), workhandler.Immediate{})
	f := beamcentre.NewFinder(&fakeSolver{}, beamcentre.WithOptions(beamcentre.Options{}))
	err := f.FindAsync(h, sans2d(t), nil, nil)
	assert.ErrorIs(t, err, beamcentre.ErrInvalidOption)
}

func TestFindAsyncReportsErrors(t *testing.T) {
	t.Parallel()

	h := workhandler.New(context.Background(), workhandler.Immediate{})
	f := beamcentre.NewFinder(&fakeSolver{err: assert.AnError})

	var got error
	require.NoError(t, f.FindAsync(h, sans2d(t), nil, func(err error) { got = err }))
	require.NoError(t, h.Wait())
	assert.ErrorIs(t, got, assert.AnError)
}

func TestCentreInformation(t *testing.T) {
	t.Parallel()

	st := sans2d(t)
	st.Move.Detectors[state.DetectorLAB] = state.DetectorState{SampleCentrePos1: 0.1, SampleCentrePos2: 0.2}
	assert.Equal(t, map[string]float64{"LAB1": 0.1, "LAB2": 0.2, "HAB1": 0, "HAB2": 0}, beamcentre.CentreInformation(st))

	larmor, err := state.Defaults("LARMOR")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"LAB1": 0, "LAB2": 0}, beamcentre.CentreInformation(larmor))
	assert.Empty(t, beamcentre.CentreInformation(nil))
}
