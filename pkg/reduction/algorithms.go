package reduction

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/selection"
	"github.com/askiada/go-reduction/pkg/state"
)

// Call is one invocation of a numerical algorithm. Inputs and Output are
// workspace names, Params the algorithm specific scalars.
type Call struct {
	Algorithm string
	Inputs    map[string]string
	Output    string
	Params    map[string]any
}

// AlgorithmRunner executes numerical algorithms. A successful Run leaves the
// named output in place of any workspace of the same name.
type AlgorithmRunner interface {
	Run(ctx context.Context, call Call) error
}

func run(ctx context.Context, runner AlgorithmRunner, call Call) error {
	if err := runner.Run(ctx, call); err != nil {
		return errors.Wrap(err, call.Algorithm)
	}

	return nil
}

// WithAlgorithms registers the standard implementation of every role, all
// backed by runner. Dark current and sensitivity workspaces are not retained.
func WithAlgorithms(runner AlgorithmRunner) Option {
	return func(r *Reducer) {
		r.impls[RoleLoad] = &LoadRun{Runner: runner}
		r.impls[RoleDarkCurrent] = NewDarkCurrent(runner)
		r.impls[RoleNormalize] = &Normalize{Runner: runner}
		r.impls[RoleMask] = &MaskDetectors{Runner: runner}
		r.impls[RoleSensitivity] = NewSensitivity(runner)
		r.impls[RoleSolidAngle] = &SolidAngle{Runner: runner}
		r.impls[RoleTransmission] = &Transmission{Runner: runner}
		r.impls[RoleBackground] = &SubtractBackground{Runner: runner}
		r.impls[RoleAzimuthal] = &AzimuthalAverage{Runner: runner}
		r.impls[RoleSave] = &SaveOutput{Runner: runner}
	}
}

// LoadRun loads the sample scatter run into a workspace named after the
// row's output. Event slices are passed on as TimeSlices so that event data
// is split while loading.
type LoadRun struct {
	Runner AlgorithmRunner
}

func (*LoadRun) Name() string { return "LoadRun" }

func (l *LoadRun) Load(ctx context.Context, st *state.AllStates) (Workspace, error) {
	call := Call{
		Algorithm: "Load",
		Inputs:    map[string]string{"Filename": st.Data.SampleScatter},
		Output:    st.Data.OutputName,
		Params:    map[string]any{"Instrument": st.Data.Instrument},
	}
	if st.Data.SampleScatterPeriod != "" {
		call.Params["EntryNumber"] = st.Data.SampleScatterPeriod
	}
	slices, err := st.Slice.Ranges()
	if err != nil {
		return Workspace{}, errors.Wrap(err, "event slices")
	}
	if len(slices) > 0 {
		call.Params["TimeSlices"] = slices
	}
	if err := run(ctx, l.Runner, call); err != nil {
		return Workspace{}, err
	}

	return Workspace{Name: st.Data.OutputName, Shape: ShapeDetector}, nil
}

// cache keeps loaded auxiliary workspaces by file when retaining.
type cache struct {
	mu     sync.Mutex
	retain bool
	loaded map[string]string
}

// load returns the workspace holding file, calling fn when it is not cached.
func (c *cache) load(file string, fn func(name string) error) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.loaded[file]; ok && c.retain {
		return name, nil
	}
	name := "__" + file
	if err := fn(name); err != nil {
		return "", err
	}
	if c.retain {
		if c.loaded == nil {
			c.loaded = make(map[string]string)
		}
		c.loaded[file] = name
	}

	return name, nil
}

func (c *cache) setRetain() {
	c.mu.Lock()
	c.retain = true
	c.mu.Unlock()
}

func (c *cache) reset() {
	c.mu.Lock()
	c.loaded = nil
	c.mu.Unlock()
}

// DarkCurrent subtracts a dark current run.
type DarkCurrent struct {
	Runner AlgorithmRunner
	cache  cache
}

func NewDarkCurrent(runner AlgorithmRunner) *DarkCurrent {
	return &DarkCurrent{Runner: runner}
}

// Retain keeps loaded dark current workspaces for later rows.
func (d *DarkCurrent) Retain() *DarkCurrent {
	d.cache.setRetain()

	return d
}

// Reset drops retained workspaces.
func (d *DarkCurrent) Reset() {
	d.cache.reset()
}

func (*DarkCurrent) Name() string { return "DarkCurrent" }

func (d *DarkCurrent) SubtractDarkCurrent(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	dark, err := d.cache.load(st.DarkCurrent.File, func(name string) error {
		return run(ctx, d.Runner, Call{
			Algorithm: "Load",
			Inputs:    map[string]string{"Filename": st.DarkCurrent.File},
			Output:    name,
		})
	})
	if err != nil {
		return Workspace{}, err
	}

	err = run(ctx, d.Runner, Call{
		Algorithm: "Minus",
		Inputs:    map[string]string{"LHSWorkspace": ws.Name, "RHSWorkspace": dark},
		Output:    ws.Name,
	})
	if err != nil {
		return Workspace{}, err
	}

	return ws, nil
}

// Normalize divides by beam monitor counts or by proton charge.
type Normalize struct {
	Runner AlgorithmRunner
}

func (*Normalize) Name() string { return "Normalize" }

func (n *Normalize) Normalize(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	call := Call{
		Algorithm: "NormaliseByCurrent",
		Inputs:    map[string]string{"InputWorkspace": ws.Name},
		Output:    ws.Name,
	}
	if st.Normalization.Mode == state.NormalizeMonitor {
		call.Algorithm = "NormaliseToMonitor"
		call.Params = map[string]any{"MonitorSpectrum": st.Normalization.MonitorSpectrum}
	}
	if err := run(ctx, n.Runner, call); err != nil {
		return Workspace{}, err
	}

	return ws, nil
}

// MaskDetectors masks the configured spectra and radius.
type MaskDetectors struct {
	Runner AlgorithmRunner
}

func (*MaskDetectors) Name() string { return "MaskDetectors" }

func (m *MaskDetectors) Mask(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	params := map[string]any{}
	if st.Mask.Spectra != "" {
		lower, upper := st.SpectrumBounds()
		spectra, err := selection.Parse(st.Mask.Spectra, lower, upper)
		if err != nil {
			return Workspace{}, err
		}
		params["SpectraList"] = selection.Canonical(spectra)
	}
	if st.Mask.RadiusMax > 0 {
		params["RadiusMin"] = st.Mask.RadiusMin
		params["RadiusMax"] = st.Mask.RadiusMax
	}
	err := run(ctx, m.Runner, Call{
		Algorithm: "MaskDetectors",
		Inputs:    map[string]string{"Workspace": ws.Name},
		Output:    ws.Name,
		Params:    params,
	})
	if err != nil {
		return Workspace{}, err
	}

	return ws, nil
}

// Sensitivity divides by a detector efficiency map.
type Sensitivity struct {
	Runner AlgorithmRunner
	cache  cache
}

func NewSensitivity(runner AlgorithmRunner) *Sensitivity {
	return &Sensitivity{Runner: runner}
}

// Retain keeps loaded efficiency maps for later rows.
func (s *Sensitivity) Retain() *Sensitivity {
	s.cache.setRetain()

	return s
}

// Reset drops retained workspaces.
func (s *Sensitivity) Reset() {
	s.cache.reset()
}

func (*Sensitivity) Name() string { return "Sensitivity" }

func (s *Sensitivity) CorrectSensitivity(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	eff, err := s.cache.load(st.Sensitivity.File, func(name string) error {
		return run(ctx, s.Runner, Call{
			Algorithm: "CalculateEfficiency",
			Inputs:    map[string]string{"Filename": st.Sensitivity.File},
			Output:    name,
			Params: map[string]any{
				"MinEfficiency": st.Sensitivity.MinEfficiency,
				"MaxEfficiency": st.Sensitivity.MaxEfficiency,
			},
		})
	})
	if err != nil {
		return Workspace{}, err
	}

	err = run(ctx, s.Runner, Call{
		Algorithm: "Divide",
		Inputs:    map[string]string{"LHSWorkspace": ws.Name, "RHSWorkspace": eff},
		Output:    ws.Name,
	})
	if err != nil {
		return Workspace{}, err
	}

	return ws, nil
}

// SolidAngle divides each pixel by the solid angle it covers.
type SolidAngle struct {
	Runner AlgorithmRunner
}

func (*SolidAngle) Name() string { return "SolidAngle" }

func (s *SolidAngle) CorrectSolidAngle(ctx context.Context, _ *state.AllStates, ws Workspace) (Workspace, error) {
	angles := ws.Name + "_solid_angle"
	calls := []Call{
		{Algorithm: "SolidAngle", Inputs: map[string]string{"InputWorkspace": ws.Name}, Output: angles},
		{Algorithm: "Divide", Inputs: map[string]string{"LHSWorkspace": ws.Name, "RHSWorkspace": angles}, Output: ws.Name},
	}
	for _, call := range calls {
		if err := run(ctx, s.Runner, call); err != nil {
			return Workspace{}, err
		}
	}

	return ws, nil
}

// Transmission applies a fixed transmission or one calculated from the
// sample transmission and direct runs.
type Transmission struct {
	Runner AlgorithmRunner
}

func (*Transmission) Name() string { return "Transmission" }

func (t *Transmission) CorrectTransmission(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	apply := Call{
		Algorithm: "ApplyTransmissionCorrection",
		Inputs:    map[string]string{"InputWorkspace": ws.Name},
		Output:    ws.Name,
	}
	if v := st.Transmission.Value; v > 0 {
		apply.Params = map[string]any{"TransmissionValue": v}
	} else {
		trans := ws.Name + "_trans"
		err := run(ctx, t.Runner, Call{
			Algorithm: "CalculateTransmission",
			Inputs: map[string]string{
				"SampleRunWorkspace": st.Data.SampleTransmission,
				"DirectRunWorkspace": st.Data.SampleDirect,
			},
			Output: trans,
			Params: map[string]any{
				"WavelengthLow":  st.Wavelength.Low[0],
				"WavelengthHigh": st.Wavelength.High[len(st.Wavelength.High)-1],
			},
		})
		if err != nil {
			return Workspace{}, err
		}
		apply.Inputs["TransmissionWorkspace"] = trans
	}
	if err := run(ctx, t.Runner, apply); err != nil {
		return Workspace{}, err
	}

	return ws, nil
}

// SubtractBackground removes the scaled can run.
type SubtractBackground struct {
	Runner AlgorithmRunner
}

func (*SubtractBackground) Name() string { return "SubtractBackground" }

func (b *SubtractBackground) SubtractBackground(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	can := ws.Name + "_can"
	load := Call{
		Algorithm: "Load",
		Inputs:    map[string]string{"Filename": st.Data.CanScatter},
		Output:    can,
	}
	if st.Data.CanScatterPeriod != "" {
		load.Params = map[string]any{"EntryNumber": st.Data.CanScatterPeriod}
	}
	calls := []Call{
		load,
		{
			Algorithm: "Scale",
			Inputs:    map[string]string{"InputWorkspace": can},
			Output:    can,
			Params:    map[string]any{"Factor": st.Background.ScaleFactor},
		},
		{
			Algorithm: "Minus",
			Inputs:    map[string]string{"LHSWorkspace": ws.Name, "RHSWorkspace": can},
			Output:    ws.Name,
		},
	}
	for _, call := range calls {
		if err := run(ctx, b.Runner, call); err != nil {
			return Workspace{}, err
		}
	}

	return ws, nil
}

// AzimuthalAverage bins detector counts into I(Q).
type AzimuthalAverage struct {
	Runner AlgorithmRunner
}

func (*AzimuthalAverage) Name() string { return "AzimuthalAverage" }

func (a *AzimuthalAverage) AverageAzimuthally(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	az := st.Azimuthal
	out := ws.Name + "_1D"
	err := run(ctx, a.Runner, Call{
		Algorithm: "Q1D",
		Inputs:    map[string]string{"DetBankWorkspace": ws.Name},
		Output:    out,
		Params: map[string]any{
			"OutputBinning": formatBinning(az.QMin, az.QStep, az.QMax),
		},
	})
	if err != nil {
		return Workspace{}, err
	}

	return Workspace{Name: out, Shape: ShapeIQ}, nil
}

func formatBinning(values ...float64) string {
	res := ""
	for i, v := range values {
		if i > 0 {
			res += ","
		}
		res += strconv.FormatFloat(v, 'g', -1, 64)
	}

	return res
}

var saveAlgorithms = map[state.SaveFormat]struct {
	algorithm string
	extension string
}{
	state.FormatNexus:    {algorithm: "SaveNexus", extension: ".nxs"},
	state.FormatNXcanSAS: {algorithm: "SaveNXcanSAS", extension: "_nxcansas.h5"},
	state.FormatCanSAS:   {algorithm: "SaveCanSAS1D", extension: ".xml"},
	state.FormatRKH:      {algorithm: "SaveRKH", extension: ".txt"},
	state.FormatCSV:      {algorithm: "SaveCSV", extension: ".csv"},
}

// SaveOutput writes the final workspace once per configured format.
type SaveOutput struct {
	Runner AlgorithmRunner
}

func (*SaveOutput) Name() string { return "SaveOutput" }

func (s *SaveOutput) Save(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error) {
	for _, format := range st.Save.Formats {
		alg, ok := saveAlgorithms[format]
		if !ok {
			return Workspace{}, errors.Errorf("no writer for format %s", format)
		}
		err := run(ctx, s.Runner, Call{
			Algorithm: alg.algorithm,
			Inputs:    map[string]string{"InputWorkspace": ws.Name},
			Params:    map[string]any{"Filename": st.Data.OutputName + alg.extension},
		})
		if err != nil {
			return Workspace{}, err
		}
	}

	return ws, nil
}
