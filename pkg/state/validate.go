package state

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/selection"
)

var ErrValidation = errors.New("invalid state")

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid state: %s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks s section by section and returns the first problem found.
func (s *AllStates) Validate() error {
	checks := []func() error{
		s.validateData,
		s.validateSample,
		s.validateWavelength,
		s.validateReduction,
		s.validateMove,
		s.validateMask,
		s.validateSlice,
		s.validateNormalization,
		s.validateTransmission,
		s.validateBackground,
		s.validateAzimuthal,
		s.validateSave,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	return nil
}

func (s *AllStates) validateData() error {
	if s.Data.Instrument == "" {
		return invalid("data.instrument", "must be set")
	}
	if s.Data.SampleScatter == "" {
		return invalid("data.sample_scatter", "a sample scatter run is required")
	}
	if (s.Data.CanTransmission == "") != (s.Data.CanDirect == "") {
		return invalid("data.can_transmission", "can transmission and can direct runs must be given together")
	}

	return nil
}

func (s *AllStates) validateSample() error {
	if !finitePositive(s.Sample.Thickness) {
		return invalid("sample.thickness", "must be positive, got %v", s.Sample.Thickness)
	}
	if s.Sample.Height < 0 || s.Sample.Width < 0 {
		return invalid("sample.geometry", "height and width cannot be negative")
	}

	return nil
}

func (s *AllStates) validateWavelength() error {
	w := s.Wavelength
	if len(w.Low) == 0 || len(w.Low) != len(w.High) {
		return invalid("wavelength.low", "need matching low/high ranges, got %d and %d", len(w.Low), len(w.High))
	}
	for i := range w.Low {
		if !finitePositive(w.Low[i]) || !finitePositive(w.High[i]) {
			return invalid("wavelength.low", "range %d must be positive", i)
		}
		if w.Low[i] >= w.High[i] {
			return invalid("wavelength.high", "range %d: %v is not above %v", i, w.High[i], w.Low[i])
		}
	}
	if w.Step <= 0 {
		return invalid("wavelength.step", "must be positive, got %v", w.Step)
	}
	if w.StepType != "Lin" && w.StepType != "Log" {
		return invalid("wavelength.step_type", "must be Lin or Log, got %q", w.StepType)
	}

	return nil
}

func (s *AllStates) validateReduction() error {
	r := s.Reduction
	if r.Mode < ModeLAB || r.Mode > ModeAll {
		return invalid("reduction.mode", "unknown mode %d", r.Mode)
	}
	if r.Dimensionality != OneDim && r.Dimensionality != TwoDim {
		return invalid("reduction.dimensionality", "must be OneDim or TwoDim")
	}
	if math.IsNaN(r.MergeScale) || math.IsInf(r.MergeScale, 0) || r.MergeScale <= 0 {
		return invalid("reduction.merge_scale", "must be positive, got %v", r.MergeScale)
	}
	if math.IsNaN(r.MergeShift) || math.IsInf(r.MergeShift, 0) {
		return invalid("reduction.merge_shift", "must be finite")
	}

	return nil
}

func (s *AllStates) validateMove() error {
	if _, ok := s.Move.Detectors[DetectorLAB]; !ok {
		return invalid("move.detectors", "missing %s", DetectorLAB)
	}
	if s.Reduction.Mode != ModeLAB {
		if _, ok := s.Move.Detectors[DetectorHAB]; !ok {
			return invalid("move.detectors", "mode %s needs %s", s.Reduction.Mode, DetectorHAB)
		}
	}
	for name, det := range s.Move.Detectors {
		if det.SpectrumMin > det.SpectrumMax {
			return invalid("move.detectors."+name, "spectrum range %d-%d is empty", det.SpectrumMin, det.SpectrumMax)
		}
	}

	return nil
}

func (s *AllStates) validateMask() error {
	m := s.Mask
	if m.RadiusMin < 0 || (m.RadiusMax > 0 && m.RadiusMin >= m.RadiusMax) {
		return invalid("mask.radius", "need 0 <= min < max, got %v and %v", m.RadiusMin, m.RadiusMax)
	}
	if m.Spectra == "" {
		return nil
	}
	lower, upper := s.SpectrumBounds()
	if _, err := selection.Parse(m.Spectra, lower, upper); err != nil {
		return invalid("mask.spectra", "%v", err)
	}

	return nil
}

// SpectrumBounds returns the lowest and highest spectrum over all detectors.
func (s *AllStates) SpectrumBounds() (int, int) {
	lower, upper := math.MaxInt, math.MinInt
	for _, det := range s.Move.Detectors {
		lower = min(lower, det.SpectrumMin)
		upper = max(upper, det.SpectrumMax)
	}

	return lower, upper
}

func (s *AllStates) validateSlice() error {
	if _, err := s.Slice.Ranges(); err != nil {
		return invalid("slice.event_slices", "%v", err)
	}

	return nil
}

func (s *AllStates) validateNormalization() error {
	n := s.Normalization
	if !n.Enabled {
		return nil
	}
	if n.Mode != NormalizeTime && n.Mode != NormalizeMonitor {
		return invalid("normalization.mode", "unknown mode %d", n.Mode)
	}
	if n.Mode == NormalizeMonitor && n.MonitorSpectrum <= 0 {
		return invalid("normalization.monitor_spectrum", "monitor normalisation needs a monitor spectrum")
	}

	return nil
}

func (s *AllStates) validateTransmission() error {
	t := s.Transmission
	if !t.Enabled {
		return nil
	}
	if t.Value < 0 || t.Value > 1 {
		return invalid("transmission.value", "must be in [0, 1], got %v", t.Value)
	}
	if t.Value == 0 && (s.Data.SampleTransmission == "" || s.Data.SampleDirect == "") {
		return invalid("transmission.runs", "a calculated transmission needs sample transmission and direct runs")
	}

	return nil
}

func (s *AllStates) validateBackground() error {
	b := s.Background
	if !b.Enabled {
		return nil
	}
	if s.Data.CanScatter == "" {
		return invalid("background.can_scatter", "background subtraction needs a can scatter run")
	}
	if b.ScaleFactor <= 0 {
		return invalid("background.scale_factor", "must be positive, got %v", b.ScaleFactor)
	}

	return nil
}

func (s *AllStates) validateAzimuthal() error {
	a := s.Azimuthal
	if !a.Enabled {
		return nil
	}
	if a.QMin < 0 || a.QMin >= a.QMax {
		return invalid("azimuthal.q", "need 0 <= q min < q max, got %v and %v", a.QMin, a.QMax)
	}
	if a.QStep == 0 {
		return invalid("azimuthal.q_step", "must not be zero")
	}

	return nil
}

func (s *AllStates) validateSave() error {
	for _, f := range s.Save.Formats {
		if !f.valid() {
			return invalid("save.formats", "unknown format %q", f)
		}
	}
	if s.Save.Enabled() && s.Data.OutputName == "" {
		return invalid("data.output_name", "saving needs an output name")
	}

	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
