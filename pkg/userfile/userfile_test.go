package userfile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/userfile"
)

const fullUserFile = `
instrument: SANS2D
sample:
  thickness: 2.5
  shape: Disc
wavelength:
  ranges: [[1.5, 12.5], [2.0, 4.0]]
  step: 0.2
  step_type: Log
reduction:
  mode: Merged
  dimensionality: 2D
  merge_scale: 1.1
  merge_fit: Both
detectors:
  LAB:
    centre_pos1: 0.15
    centre_pos2: -0.16
  HAB:
    centre_pos1: 0.1
mask:
  spectra: "9-20"
  radius_max: 0.25
slices: "1-6,5-9"
normalization:
  mode: time
dark_current:
  file: dark.nxs
sensitivity:
  file: flood.nxs
  min_efficiency: 0.5
  max_efficiency: 2
solid_angle: false
transmission:
  enabled: true
background:
  enabled: true
  scale_factor: 0.9
azimuthal:
  q_min: 0.002
  q_max: 0.3
  q_step: 0.01
save: [Nexus, CSV]
`

func newAdapter(t *testing.T) *userfile.Adapter {
	t.Helper()

	a, err := userfile.NewAdapter()
	require.NoError(t, err)

	return a
}

func TestParseOverlaysDefaults(t *testing.T) {
	t.Parallel()

	s, err := newAdapter(t).Parse(strings.NewReader(fullUserFile))
	require.NoError(t, err)

	assert.Equal(t, "SANS2D", s.Data.Instrument)
	assert.Equal(t, 2.5, s.Sample.Thickness)
	assert.Equal(t, "Disc", s.Sample.Shape)
	assert.Equal(t, []float64{1.5, 2.0}, s.Wavelength.Low)
	assert.Equal(t, []float64{12.5, 4.0}, s.Wavelength.High)
	assert.Equal(t, 0.2, s.Wavelength.Step)
	assert.Equal(t, "Log", s.Wavelength.StepType)
	assert.Equal(t, state.ModeMerged, s.Reduction.Mode)
	assert.Equal(t, state.TwoDim, s.Reduction.Dimensionality)
	assert.Equal(t, 1.1, s.Reduction.MergeScale)
	assert.Equal(t, state.FitBoth, s.Reduction.MergeFit)
	assert.Equal(t, 0.15, s.Move.Detectors[state.DetectorLAB].SampleCentrePos1)
	assert.Equal(t, -0.16, s.Move.Detectors[state.DetectorLAB].SampleCentrePos2)
	assert.Equal(t, 0.1, s.Move.Detectors[state.DetectorHAB].SampleCentrePos1)
	assert.Equal(t, 36873, s.Move.Detectors[state.DetectorHAB].SpectrumMin)
	assert.Equal(t, "9-20", s.Mask.Spectra)
	assert.Equal(t, 0.25, s.Mask.RadiusMax)
	assert.Equal(t, "1-6,5-9", s.Slice.EventSlices)
	assert.True(t, s.Normalization.Enabled)
	assert.Equal(t, state.NormalizeTime, s.Normalization.Mode)
	assert.Equal(t, "dark.nxs", s.DarkCurrent.File)
	assert.Equal(t, "flood.nxs", s.Sensitivity.File)
	assert.Equal(t, 2.0, s.Sensitivity.MaxEfficiency)
	assert.False(t, s.SolidAngle.Enabled)
	assert.True(t, s.Transmission.Enabled)
	assert.True(t, s.Background.Enabled)
	assert.Equal(t, 0.9, s.Background.ScaleFactor)
	assert.True(t, s.Azimuthal.Enabled)
	assert.Equal(t, 0.3, s.Azimuthal.QMax)
	assert.Equal(t, []state.SaveFormat{state.FormatNexus, state.FormatCSV}, s.Save.Formats)
}

func TestParseMinimalKeepsDefaults(t *testing.T) {
	t.Parallel()

	s, err := newAdapter(t).Parse(strings.NewReader("instrument: loq\n"))
	require.NoError(t, err)

	want, err := state.Defaults("LOQ")
	require.NoError(t, err)
	assert.Equal(t, want, s)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  error
	}{
		"empty":              {input: "", want: userfile.ErrDecode},
		"not yaml":           {input: "instrument: [", want: userfile.ErrDecode},
		"missing instrument": {input: "slices: '1-2'\n", want: userfile.ErrSchema},
		"unknown instrument": {input: "instrument: D22\n", want: userfile.ErrSchema},
		"unknown key":        {input: "instrument: LOQ\ncolour: red\n", want: userfile.ErrSchema},
		"negative thickness": {input: "instrument: LOQ\nsample:\n  thickness: -1\n", want: userfile.ErrSchema},
		"bad save format":    {input: "instrument: LOQ\nsave: [PNG]\n", want: userfile.ErrSchema},
		"short range":        {input: "instrument: LOQ\nwavelength:\n  ranges: [[1.0]]\n", want: userfile.ErrSchema},
		"missing detector":   {input: "instrument: ZOOM\ndetectors:\n  HAB:\n    centre_pos1: 0.1\n", want: userfile.ErrSchema},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newAdapter(t).Parse(strings.NewReader(tc.input))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "user.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullUserFile), 0o600))

	s, err := newAdapter(t).Load(path)
	require.NoError(t, err)
	assert.Equal(t, state.ModeMerged, s.Reduction.Mode)

	_, err = newAdapter(t).Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
