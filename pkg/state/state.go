// Package state is the configuration tree used to reduce one row.
//
// An AllStates value is built by layering instrument defaults, the user file,
// GUI settings and the row's own overrides. Every layer works on its own deep
// copy: a composed state never shares slices or maps with the base it was
// built from, so rows can be reduced concurrently without locking.
package state

// ReductionMode selects the detector banks that are reduced.
type ReductionMode int

const (
	ModeLAB ReductionMode = iota
	ModeHAB
	ModeMerged
	ModeAll
)

func (m ReductionMode) String() string {
	switch m {
	case ModeLAB:
		return "LAB"
	case ModeHAB:
		return "HAB"
	case ModeMerged:
		return "Merged"
	case ModeAll:
		return "All"
	default:
		return "Unknown"
	}
}

// Dimensionality of the reduced output. The zero value means unset.
type Dimensionality int

const (
	DimensionalityUnset Dimensionality = iota
	OneDim
	TwoDim
)

func (d Dimensionality) String() string {
	switch d {
	case OneDim:
		return "OneDim"
	case TwoDim:
		return "TwoDim"
	default:
		return "Unset"
	}
}

// MergeFit selects which of scale and shift are fitted when merging banks.
type MergeFit int

const (
	FitNone MergeFit = iota
	FitScale
	FitShift
	FitBoth
)

// NormalizationMode selects what the counts are divided by.
type NormalizationMode int

const (
	NormalizeTime NormalizationMode = iota
	NormalizeMonitor
)

// SaveFormat is an output file type.
type SaveFormat string

const (
	FormatNexus    SaveFormat = "Nexus"
	FormatNXcanSAS SaveFormat = "NXcanSAS"
	FormatCanSAS   SaveFormat = "CanSAS"
	FormatRKH      SaveFormat = "RKH"
	FormatCSV      SaveFormat = "CSV"
)

func (f SaveFormat) valid() bool {
	switch f {
	case FormatNexus, FormatNXcanSAS, FormatCanSAS, FormatRKH, FormatCSV:
		return true
	default:
		return false
	}
}

const (
	DetectorLAB = "LAB"
	DetectorHAB = "HAB"
)

type DataState struct {
	Instrument               string
	SampleScatter            string
	SampleScatterPeriod      string
	SampleTransmission       string
	SampleTransmissionPeriod string
	SampleDirect             string
	SampleDirectPeriod       string
	CanScatter               string
	CanScatterPeriod         string
	CanTransmission          string
	CanTransmissionPeriod    string
	CanDirect                string
	CanDirectPeriod          string
	OutputName               string
}

type SampleState struct {
	Thickness float64
	Height    float64
	Width     float64
	Shape     string
}

// WavelengthState holds one or more wavelength ranges. Low and High are
// paired by index.
type WavelengthState struct {
	Low      []float64
	High     []float64
	Step     float64
	StepType string
}

type ReductionState struct {
	Mode           ReductionMode
	Dimensionality Dimensionality
	MergeScale     float64
	MergeShift     float64
	MergeFit       MergeFit
}

type DetectorState struct {
	SampleCentrePos1 float64
	SampleCentrePos2 float64
	SpectrumMin      int
	SpectrumMax      int
}

type MoveState struct {
	Detectors map[string]DetectorState
}

type MaskState struct {
	Spectra   string
	RadiusMin float64
	RadiusMax float64
}

// Enabled reports whether any mask is configured.
func (m MaskState) Enabled() bool {
	return m.Spectra != "" || m.RadiusMax > 0
}

type SliceState struct {
	EventSlices string
}

type NormalizationState struct {
	Enabled         bool
	Mode            NormalizationMode
	MonitorSpectrum int
}

type DarkCurrentState struct {
	File string
}

type SensitivityState struct {
	File          string
	MinEfficiency float64
	MaxEfficiency float64
}

type SolidAngleState struct {
	Enabled bool
}

// TransmissionState configures the transmission correction. A non-zero Value
// is used as a fixed transmission instead of one calculated from runs.
type TransmissionState struct {
	Enabled bool
	Value   float64
}

type BackgroundState struct {
	Enabled     bool
	ScaleFactor float64
}

type AzimuthalState struct {
	Enabled bool
	QMin    float64
	QMax    float64
	QStep   float64
}

type SaveState struct {
	Formats []SaveFormat
}

// Enabled reports whether any output is written.
func (s SaveState) Enabled() bool {
	return len(s.Formats) > 0
}

// AllStates is the composed configuration for one row.
type AllStates struct {
	Data          DataState
	Sample        SampleState
	Wavelength    WavelengthState
	Reduction     ReductionState
	Move          MoveState
	Mask          MaskState
	Slice         SliceState
	Normalization NormalizationState
	DarkCurrent   DarkCurrentState
	Sensitivity   SensitivityState
	SolidAngle    SolidAngleState
	Transmission  TransmissionState
	Background    BackgroundState
	Azimuthal     AzimuthalState
	Save          SaveState
}

// Clone returns a deep copy of s.
func (s *AllStates) Clone() *AllStates {
	c := *s
	c.Wavelength.Low = cloneSlice(s.Wavelength.Low)
	c.Wavelength.High = cloneSlice(s.Wavelength.High)
	c.Save.Formats = cloneSlice(s.Save.Formats)
	if s.Move.Detectors != nil {
		c.Move.Detectors = make(map[string]DetectorState, len(s.Move.Detectors))
		for name, det := range s.Move.Detectors {
			c.Move.Detectors[name] = det
		}
	}

	return &c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)

	return out
}

// TopLevel carries the settings from the top of the GUI that always win over
// a user file, even one loaded for a single row.
type TopLevel struct {
	Dimensionality Dimensionality
	SaveFormats    []SaveFormat
}

// Apply overlays the set fields of t onto s.
func (t TopLevel) Apply(s *AllStates) {
	if t.Dimensionality != DimensionalityUnset {
		s.Reduction.Dimensionality = t.Dimensionality
	}
	if t.SaveFormats != nil {
		s.Save.Formats = cloneSlice(t.SaveFormats)
	}
}
