package state_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-reduction/pkg/state"
)

func validState(t *testing.T) *state.AllStates {
	t.Helper()

	s, err := state.Defaults("SANS2D")
	require.NoError(t, err)
	s.Data.SampleScatter = "SANS2D00022024"
	s.Data.OutputName = "out"

	return s
}

func TestDefaultsWithRunValidate(t *testing.T) {
	t.Parallel()

	for _, name := range state.Instruments() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := state.Defaults(name)
			require.NoError(t, err)
			s.Data.SampleScatter = "1"
			assert.NoError(t, s.Validate())
		})
	}
}

func TestDefaultsUnknownInstrument(t *testing.T) {
	t.Parallel()

	_, err := state.Defaults("NOPE")
	assert.ErrorIs(t, err, state.ErrUnknownInstrument)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	s := validState(t)
	s.Save.Formats = []state.SaveFormat{state.FormatNexus}
	c := s.Clone()

	c.Wavelength.Low[0] = 5
	c.Wavelength.High = append(c.Wavelength.High, 20)
	c.Save.Formats[0] = state.FormatCSV
	det := c.Move.Detectors[state.DetectorLAB]
	det.SampleCentrePos1 = 0.3
	c.Move.Detectors[state.DetectorLAB] = det
	c.Reduction.MergeScale = 9

	assert.Equal(t, []float64{2.0}, s.Wavelength.Low)
	assert.Equal(t, []float64{14.0}, s.Wavelength.High)
	assert.Equal(t, []state.SaveFormat{state.FormatNexus}, s.Save.Formats)
	assert.Equal(t, 0.0, s.Move.Detectors[state.DetectorLAB].SampleCentrePos1)
	assert.Equal(t, 1.0, s.Reduction.MergeScale)
}

func TestValidateFirstFailingField(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate func(s *state.AllStates)
		field  string
	}{
		"missing sample scatter": {
			mutate: func(s *state.AllStates) { s.Data.SampleScatter = "" },
			field:  "data.sample_scatter",
		},
		"first failure wins": {
			mutate: func(s *state.AllStates) {
				s.Data.SampleScatter = ""
				s.Wavelength.Low = nil
			},
			field: "data.sample_scatter",
		},
		"zero thickness": {
			mutate: func(s *state.AllStates) { s.Sample.Thickness = 0 },
			field:  "sample.thickness",
		},
		"inverted wavelength": {
			mutate: func(s *state.AllStates) { s.Wavelength.Low = []float64{15} },
			field:  "wavelength.high",
		},
		"unpaired wavelength": {
			mutate: func(s *state.AllStates) { s.Wavelength.High = []float64{3, 4} },
			field:  "wavelength.low",
		},
		"bad step type": {
			mutate: func(s *state.AllStates) { s.Wavelength.StepType = "Cubic" },
			field:  "wavelength.step_type",
		},
		"merged without hab": {
			mutate: func(s *state.AllStates) {
				s.Reduction.Mode = state.ModeMerged
				delete(s.Move.Detectors, state.DetectorHAB)
			},
			field: "move.detectors",
		},
		"negative merge scale": {
			mutate: func(s *state.AllStates) { s.Reduction.MergeScale = -1 },
			field:  "reduction.merge_scale",
		},
		"mask outside detector": {
			mutate: func(s *state.AllStates) { s.Mask.Spectra = "1-3" },
			field:  "mask.spectra",
		},
		"bad event slices": {
			mutate: func(s *state.AllStates) { s.Slice.EventSlices = "5-1" },
			field:  "slice.event_slices",
		},
		"transmission without runs": {
			mutate: func(s *state.AllStates) { s.Transmission.Enabled = true },
			field:  "transmission.runs",
		},
		"background without can": {
			mutate: func(s *state.AllStates) { s.Background.Enabled = true },
			field:  "background.can_scatter",
		},
		"save without output": {
			mutate: func(s *state.AllStates) {
				s.Save.Formats = []state.SaveFormat{state.FormatCSV}
				s.Data.OutputName = ""
			},
			field: "data.output_name",
		},
		"unknown save format": {
			mutate: func(s *state.AllStates) { s.Save.Formats = []state.SaveFormat{"PNG"} },
			field:  "save.formats",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := validState(t)
			tc.mutate(s)

			err := s.Validate()
			require.ErrorIs(t, err, state.ErrValidation)
			var verr *state.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidateAcceptsConfiguredSections(t *testing.T) {
	t.Parallel()

	s := validState(t)
	s.Data.SampleTransmission = "22041"
	s.Data.SampleDirect = "22042"
	s.Data.CanScatter = "22023"
	s.Transmission.Enabled = true
	s.Background.Enabled = true
	s.Mask.Spectra = "9-20, 36873"
	s.Slice.EventSlices = "1-6,5-9,4:5:89"
	s.Save.Formats = []state.SaveFormat{state.FormatNXcanSAS, state.FormatCSV}

	assert.NoError(t, s.Validate())
}

func TestTopLevelApply(t *testing.T) {
	t.Parallel()

	s := validState(t)
	state.TopLevel{}.Apply(s)
	assert.Equal(t, state.OneDim, s.Reduction.Dimensionality)
	assert.Nil(t, s.Save.Formats)

	formats := []state.SaveFormat{state.FormatRKH}
	state.TopLevel{Dimensionality: state.TwoDim, SaveFormats: formats}.Apply(s)
	formats[0] = state.FormatCSV

	assert.Equal(t, state.TwoDim, s.Reduction.Dimensionality)
	assert.Equal(t, []state.SaveFormat{state.FormatRKH}, s.Save.Formats)
}

func TestParseEventSlices(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  []state.SliceRange
	}{
		"empty":      {input: "", want: nil},
		"one range":  {input: "1-6", want: []state.SliceRange{{Start: 1, Stop: 6}}},
		"boundaries": {input: "0, 10, 20", want: []state.SliceRange{{Start: 0, Stop: 10}, {Start: 10, Stop: 20}}},
		"stepped":    {input: "0:5:12", want: []state.SliceRange{{Start: 0, Stop: 5}, {Start: 5, Stop: 10}, {Start: 10, Stop: 12}}},
		"mixed": {input: "1-6,5-9,4:5:14", want: []state.SliceRange{
			{Start: 1, Stop: 6}, {Start: 5, Stop: 9}, {Start: 4, Stop: 9}, {Start: 9, Stop: 14},
		}},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := state.ParseEventSlices(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseEventSlicesFractionalStep(t *testing.T) {
	t.Parallel()

	got, err := state.ParseEventSlices("0:0.1:1")
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.InDelta(t, 0.9, got[9].Start, 1e-12)
	assert.Equal(t, 1.0, got[9].Stop)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].Stop, got[i].Start)
	}

	got, err = state.ParseEventSlices("0:1:10000")
	require.NoError(t, err)
	assert.Len(t, got, state.MaxEventSlices)
}

func TestParseEventSlicesErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"5", "1-1", "3, 2", "0:0:5", "a-b", "1:2", "-1",
		"0:0.000000001:100000", "0:1:10001", "0:1:6000, 0:1:6000",
	} {
		_, err := state.ParseEventSlices(input)
		assert.ErrorIs(t, err, state.ErrMalformedSlices, input)
	}
}
