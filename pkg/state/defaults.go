package state

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

type instrument struct {
	detectors map[string]DetectorState
	monitor   int
}

var instruments = map[string]instrument{
	"SANS2D": {
		detectors: map[string]DetectorState{
			DetectorLAB: {SpectrumMin: 9, SpectrumMax: 36872},
			DetectorHAB: {SpectrumMin: 36873, SpectrumMax: 73736},
		},
		monitor: 1,
	},
	"LOQ": {
		detectors: map[string]DetectorState{
			DetectorLAB: {SpectrumMin: 3, SpectrumMax: 16386},
			DetectorHAB: {SpectrumMin: 16387, SpectrumMax: 17792},
		},
		monitor: 2,
	},
	"LARMOR": {
		detectors: map[string]DetectorState{
			DetectorLAB: {SpectrumMin: 11, SpectrumMax: 409610},
		},
		monitor: 1,
	},
	"ZOOM": {
		detectors: map[string]DetectorState{
			DetectorLAB: {SpectrumMin: 9, SpectrumMax: 590000},
		},
		monitor: 3,
	},
}

// Instruments lists the instruments Defaults knows about.
func Instruments() []string {
	return []string{"LARMOR", "LOQ", "SANS2D", "ZOOM"}
}

// Defaults returns the instrument-level settings every composition starts
// from. Runs, sample geometry and output name are left empty.
func Defaults(name string) (*AllStates, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	inst, ok := instruments[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownInstrument, name)
	}

	s := &AllStates{
		Data: DataState{Instrument: name},
		Sample: SampleState{
			Thickness: 1.0,
		},
		Wavelength: WavelengthState{
			Low:      []float64{2.0},
			High:     []float64{14.0},
			Step:     0.125,
			StepType: "Lin",
		},
		Reduction: ReductionState{
			Mode:           ModeLAB,
			Dimensionality: OneDim,
			MergeScale:     1.0,
		},
		Move: MoveState{Detectors: make(map[string]DetectorState, len(inst.detectors))},
		Normalization: NormalizationState{
			Enabled:         true,
			Mode:            NormalizeMonitor,
			MonitorSpectrum: inst.monitor,
		},
		SolidAngle: SolidAngleState{Enabled: true},
		Background: BackgroundState{ScaleFactor: 1.0},
		Azimuthal: AzimuthalState{
			Enabled: true,
			QMin:    0.001,
			QMax:    0.2,
			QStep:   -0.08,
		},
	}
	for det, info := range inst.detectors {
		s.Move.Detectors[det] = info
	}

	return s, nil
}
