package reduction_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/reduction"
	"github.com/askiada/go-reduction/pkg/state"
)

type recordingRunner struct {
	mu     sync.Mutex
	calls  []reduction.Call
	failOn string
}

func (r *recordingRunner) Run(_ context.Context, call reduction.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
	if call.Algorithm == r.failOn {
		return assert.AnError
	}

	return nil
}

func (r *recordingRunner) algorithms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]string, len(r.calls))
	for i, c := range r.calls {
		res[i] = c.Algorithm
	}

	return res
}

func composed(t *testing.T) *state.AllStates {
	t.Helper()

	s, err := state.Defaults("LOQ")
	require.NoError(t, err)
	s.Data.SampleScatter = "48094"
	s.Data.SampleTransmission = "48095"
	s.Data.SampleDirect = "48096"
	s.Data.OutputName = "48094_out"
	require.NoError(t, s.Validate())

	return s
}

func roles(steps []*reduction.Step) []reduction.Role {
	res := make([]reduction.Role, len(steps))
	for i, s := range steps {
		res[i] = s.Role
	}

	return res
}

func TestBuildTransmissionWithoutBackground(t *testing.T) {
	t.Parallel()

	st := composed(t)
	st.Transmission.Enabled = true
	st.Background.Enabled = false

	steps, err := reduction.NewReducer(reduction.WithAlgorithms(&recordingRunner{})).Build(st)
	require.NoError(t, err)

	got := roles(steps)
	assert.Equal(t, reduction.RoleLoad, got[0])
	assert.Contains(t, got, reduction.RoleTransmission)
	assert.NotContains(t, got, reduction.RoleBackground)
}

func TestBuildCanonicalOrder(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate func(st *state.AllStates)
		want   []reduction.Role
	}{
		"defaults": {
			mutate: func(*state.AllStates) {},
			want: []reduction.Role{
				reduction.RoleLoad,
				reduction.RoleNormalize,
				reduction.RoleSolidAngle,
				reduction.RoleAzimuthal,
			},
		},
		"everything": {
			mutate: func(st *state.AllStates) {
				st.DarkCurrent.File = "dark.nxs"
				st.Mask.Spectra = "3-10"
				st.Sensitivity.File = "flood.nxs"
				st.Transmission.Enabled = true
				st.Data.CanScatter = "48097"
				st.Background.Enabled = true
				st.Save.Formats = []state.SaveFormat{state.FormatCSV}
			},
			want: reduction.CanonicalOrder(),
		},
		"two dimensional skips averaging": {
			mutate: func(st *state.AllStates) {
				st.Reduction.Dimensionality = state.TwoDim
				st.Normalization.Enabled = false
				st.SolidAngle.Enabled = false
			},
			want: []reduction.Role{reduction.RoleLoad},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			st := composed(t)
			tc.mutate(st)
			steps, err := reduction.NewReducer(reduction.WithAlgorithms(&recordingRunner{})).Build(st)
			require.NoError(t, err)
			assert.Equal(t, tc.want, roles(steps))
		})
	}
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	st := composed(t)

	_, err := reduction.NewReducer().Build(st)
	assert.ErrorIs(t, err, reduction.ErrNoLoader)

	r := reduction.NewReducer(reduction.WithStep(reduction.RoleLoad, &reduction.LoadRun{}))
	_, err = r.Build(st)
	assert.ErrorIs(t, err, reduction.ErrMissingStep)
}

type customMasker struct{}

func (customMasker) Mask(_ context.Context, _ *state.AllStates, ws reduction.Workspace) (reduction.Workspace, error) {
	return ws, nil
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	r := reduction.NewReducer(reduction.WithAlgorithms(&recordingRunner{}))

	require.NoError(t, r.Substitute(reduction.RoleMask, customMasker{}))
	assert.ErrorIs(t, r.Substitute(reduction.RoleNormalize, customMasker{}), reduction.ErrIncompatibleStep)
	assert.ErrorIs(t, r.Substitute(reduction.Role("Smooth"), customMasker{}), reduction.ErrUnknownRole)
	assert.Panics(t, func() {
		reduction.NewReducer(reduction.WithStep(reduction.RoleLoad, customMasker{}))
	})

	st := composed(t)
	st.Mask.Spectra = "3"
	steps, err := r.Build(st)
	require.NoError(t, err)
	for _, s := range steps {
		if s.Role == reduction.RoleMask {
			assert.Equal(t, "reduction_test.customMasker", s.Name)
		}
	}
}

func TestRunExecutesInOrder(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	st := composed(t)
	st.Save.Formats = []state.SaveFormat{state.FormatNexus, state.FormatCSV}

	steps, err := reduction.NewReducer(reduction.WithAlgorithms(runner)).Build(st)
	require.NoError(t, err)

	ws, err := reduction.Run(context.Background(), st, steps)
	require.NoError(t, err)
	assert.Equal(t, reduction.Workspace{Name: "48094_out_1D", Shape: reduction.ShapeIQ}, ws)
	assert.Equal(t, []string{
		"Load",
		"NormaliseToMonitor",
		"SolidAngle", "Divide",
		"Q1D",
		"SaveNexus", "SaveCSV",
	}, runner.algorithms())
}

func TestRunStopsAtFailingStep(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{failOn: "SolidAngle"}
	st := composed(t)
	steps, err := reduction.NewReducer(reduction.WithAlgorithms(runner)).Build(st)
	require.NoError(t, err)

	_, err = reduction.Run(context.Background(), st, steps)
	require.ErrorIs(t, err, assert.AnError)

	var serr *reduction.StepExecutionError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, reduction.RoleSolidAngle, serr.Role)
	assert.Equal(t, "SolidAngle", serr.Step)
	assert.NotContains(t, runner.algorithms(), "Q1D")
}

type flatAverager struct{}

func (flatAverager) AverageAzimuthally(_ context.Context, _ *state.AllStates, ws reduction.Workspace) (reduction.Workspace, error) {
	return ws, nil
}

func TestRunContractViolation(t *testing.T) {
	t.Parallel()

	r := reduction.NewReducer(
		reduction.WithAlgorithms(&recordingRunner{}),
		reduction.WithStep(reduction.RoleAzimuthal, flatAverager{}),
	)
	st := composed(t)
	steps, err := r.Build(st)
	require.NoError(t, err)

	_, err = reduction.Run(context.Background(), st, steps)
	assert.ErrorIs(t, err, reduction.ErrContractViolation)
}

func TestRunWithoutLoader(t *testing.T) {
	t.Parallel()

	_, err := reduction.Run(context.Background(), composed(t), nil)
	assert.ErrorIs(t, err, reduction.ErrNoLoader)
}

func TestRetainedDarkCurrent(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	dark := reduction.NewDarkCurrent(runner).Retain()
	st := composed(t)
	st.DarkCurrent.File = "dark.nxs"
	ws := reduction.Workspace{Name: "ws", Shape: reduction.ShapeDetector}

	for range 3 {
		_, err := dark.SubtractDarkCurrent(context.Background(), st, ws)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Load", "Minus", "Minus", "Minus"}, runner.algorithms())

	dark.Reset()
	_, err := dark.SubtractDarkCurrent(context.Background(), st, ws)
	require.NoError(t, err)
	assert.Equal(t, "Load", runner.algorithms()[4])
}

func TestSensitivityWithoutRetainReloads(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	sens := reduction.NewSensitivity(runner)
	st := composed(t)
	st.Sensitivity.File = "flood.nxs"
	ws := reduction.Workspace{Name: "ws", Shape: reduction.ShapeDetector}

	for range 2 {
		_, err := sens.CorrectSensitivity(context.Background(), st, ws)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"CalculateEfficiency", "Divide", "CalculateEfficiency", "Divide"}, runner.algorithms())
}

func TestLoadPassesEventSlices(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		slices string
		want   any
	}{
		"no slices": {slices: "", want: nil},
		"stepped": {slices: "0:5:12", want: []state.SliceRange{
			{Start: 0, Stop: 5}, {Start: 5, Stop: 10}, {Start: 10, Stop: 12},
		}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			runner := &recordingRunner{}
			st := composed(t)
			st.Slice.EventSlices = tc.slices

			_, err := (&reduction.LoadRun{Runner: runner}).Load(context.Background(), st)
			require.NoError(t, err)
			require.Len(t, runner.calls, 1)
			assert.Equal(t, tc.want, runner.calls[0].Params["TimeSlices"])
		})
	}
}

func TestMaskExpandsSpectra(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	st := composed(t)
	st.Mask.Spectra = "5, 3-4, 5"

	_, err := (&reduction.MaskDetectors{Runner: runner}).Mask(context.Background(), st, reduction.Workspace{Name: "ws"})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []int{3, 4, 5}, runner.calls[0].Params["SpectraList"])
}
