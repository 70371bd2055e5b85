package drawer_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/pipeline/drawer"
	"github.com/askiada/go-reduction/pkg/reduction"
	"github.com/askiada/go-reduction/pkg/state"
)

type nopRunner struct{}

func (nopRunner) Run(context.Context, reduction.Call) error { return nil }

func TestReduction(t *testing.T) {
	t.Parallel()

	st, err := state.Defaults("LOQ")
	require.NoError(t, err)
	st.Data.SampleScatter = "48094"
	st.Data.OutputName = "48094_out"
	require.NoError(t, st.Validate())

	steps, err := reduction.NewReducer(reduction.WithAlgorithms(nopRunner{})).Build(st)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, drawer.Reduction(&buf, steps))

	out := buf.String()
	assert.Contains(t, out, `"start" -> "Load" [ weight=0 ];`)
	assert.Contains(t, out, `"Load" -> "`+string(reduction.RoleNormalize)+`" [ label="Detector", weight=0 ];`)
	assert.Contains(t, out, `"SolidAngleCorrect" -> "AzimuthalAverage" [ label="Detector", weight=0 ];`)
	assert.Contains(t, out, `"AzimuthalAverage" -> "end" [ label="I(Q)", weight=0 ];`)
	assert.Contains(t, out, `tooltip="LoadRun"`)
}

func TestReductionEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, drawer.Reduction(&buf, nil))
	assert.Contains(t, buf.String(), `"start" -> "end" [ weight=0 ];`)
}
