// Package userfile reads the instrument user file: a YAML document holding
// the settings shared by every row of a batch.
package userfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-reduction/pkg/state"
)

var (
	ErrDecode = errors.New("cannot decode user file")
	ErrSchema = errors.New("user file does not match schema")
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "userfile.schema.json"

type detector struct {
	CentrePos1 *float64 `yaml:"centre_pos1"`
	CentrePos2 *float64 `yaml:"centre_pos2"`
}

type document struct {
	Instrument string `yaml:"instrument"`
	Sample     *struct {
		Thickness *float64 `yaml:"thickness"`
		Height    *float64 `yaml:"height"`
		Width     *float64 `yaml:"width"`
		Shape     *string  `yaml:"shape"`
	} `yaml:"sample"`
	Wavelength *struct {
		Ranges   [][2]float64 `yaml:"ranges"`
		Step     *float64     `yaml:"step"`
		StepType *string      `yaml:"step_type"`
	} `yaml:"wavelength"`
	Reduction *struct {
		Mode           *string  `yaml:"mode"`
		Dimensionality *string  `yaml:"dimensionality"`
		MergeScale     *float64 `yaml:"merge_scale"`
		MergeShift     *float64 `yaml:"merge_shift"`
		MergeFit       *string  `yaml:"merge_fit"`
	} `yaml:"reduction"`
	Detectors map[string]detector `yaml:"detectors"`
	Mask      *struct {
		Spectra   *string  `yaml:"spectra"`
		RadiusMin *float64 `yaml:"radius_min"`
		RadiusMax *float64 `yaml:"radius_max"`
	} `yaml:"mask"`
	Slices        *string `yaml:"slices"`
	Normalization *struct {
		Enabled         *bool   `yaml:"enabled"`
		Mode            *string `yaml:"mode"`
		MonitorSpectrum *int    `yaml:"monitor_spectrum"`
	} `yaml:"normalization"`
	DarkCurrent *struct {
		File string `yaml:"file"`
	} `yaml:"dark_current"`
	Sensitivity *struct {
		File          string   `yaml:"file"`
		MinEfficiency *float64 `yaml:"min_efficiency"`
		MaxEfficiency *float64 `yaml:"max_efficiency"`
	} `yaml:"sensitivity"`
	SolidAngle   *bool `yaml:"solid_angle"`
	Transmission *struct {
		Enabled *bool    `yaml:"enabled"`
		Value   *float64 `yaml:"value"`
	} `yaml:"transmission"`
	Background *struct {
		Enabled     *bool    `yaml:"enabled"`
		ScaleFactor *float64 `yaml:"scale_factor"`
	} `yaml:"background"`
	Azimuthal *struct {
		Enabled *bool    `yaml:"enabled"`
		QMin    *float64 `yaml:"q_min"`
		QMax    *float64 `yaml:"q_max"`
		QStep   *float64 `yaml:"q_step"`
	} `yaml:"azimuthal"`
	Save []string `yaml:"save"`
}

// Adapter turns user files into base states.
type Adapter struct {
	schema *jsonschema.Schema
	logger *slog.Logger
}

type AdapterOption func(a *Adapter)

func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter compiles the embedded user file schema.
func NewAdapter(opts ...AdapterOption) (*Adapter, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, errors.Wrap(err, "add schema")
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, errors.Wrap(err, "compile schema")
	}

	a := &Adapter{schema: schema, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Load reads and parses the user file at path.
func (a *Adapter) Load(path string) (*state.AllStates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open user file %s", path)
	}
	defer f.Close()

	s, err := a.Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	a.logger.Debug("user file loaded", slog.String("path", path), slog.String("instrument", s.Data.Instrument))

	return s, nil
}

// Parse decodes a user file and overlays it onto the defaults of the
// instrument it names. The result is not validated: runs are still missing.
func (a *Adapter) Parse(r io.Reader) (*state.AllStates, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read user file")
	}
	if err := a.validate(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}

	s, err := state.Defaults(doc.Instrument)
	if err != nil {
		return nil, err
	}
	if err := doc.apply(s); err != nil {
		return nil, err
	}

	return s, nil
}

func (a *Adapter) validate(raw []byte) error {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return errors.Wrap(ErrDecode, err.Error())
	}
	if generic == nil {
		return errors.Wrap(ErrDecode, "empty document")
	}
	// Round trip through JSON so the validator sees plain JSON types.
	b, err := json.Marshal(generic)
	if err != nil {
		return errors.Wrap(ErrDecode, err.Error())
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return errors.Wrap(ErrDecode, err.Error())
	}
	if err := a.schema.Validate(v); err != nil {
		return errors.Wrap(ErrSchema, err.Error())
	}

	return nil
}

func (d *document) apply(s *state.AllStates) error {
	if d.Sample != nil {
		setFloat(&s.Sample.Thickness, d.Sample.Thickness)
		setFloat(&s.Sample.Height, d.Sample.Height)
		setFloat(&s.Sample.Width, d.Sample.Width)
		if d.Sample.Shape != nil {
			s.Sample.Shape = *d.Sample.Shape
		}
	}

	if w := d.Wavelength; w != nil {
		if len(w.Ranges) > 0 {
			s.Wavelength.Low = make([]float64, len(w.Ranges))
			s.Wavelength.High = make([]float64, len(w.Ranges))
			for i, r := range w.Ranges {
				s.Wavelength.Low[i], s.Wavelength.High[i] = r[0], r[1]
			}
		}
		setFloat(&s.Wavelength.Step, w.Step)
		if w.StepType != nil {
			s.Wavelength.StepType = *w.StepType
		}
	}

	if r := d.Reduction; r != nil {
		if r.Mode != nil {
			s.Reduction.Mode = reductionModes[*r.Mode]
		}
		if r.Dimensionality != nil {
			s.Reduction.Dimensionality = dimensionalities[*r.Dimensionality]
		}
		setFloat(&s.Reduction.MergeScale, r.MergeScale)
		setFloat(&s.Reduction.MergeShift, r.MergeShift)
		if r.MergeFit != nil {
			s.Reduction.MergeFit = mergeFits[*r.MergeFit]
		}
	}

	for name, det := range d.Detectors {
		current, ok := s.Move.Detectors[name]
		if !ok {
			return errors.Wrapf(ErrSchema, "instrument %s has no %s detector", s.Data.Instrument, name)
		}
		setFloat(&current.SampleCentrePos1, det.CentrePos1)
		setFloat(&current.SampleCentrePos2, det.CentrePos2)
		s.Move.Detectors[name] = current
	}

	if m := d.Mask; m != nil {
		if m.Spectra != nil {
			s.Mask.Spectra = *m.Spectra
		}
		setFloat(&s.Mask.RadiusMin, m.RadiusMin)
		setFloat(&s.Mask.RadiusMax, m.RadiusMax)
	}

	if d.Slices != nil {
		s.Slice.EventSlices = *d.Slices
	}

	if n := d.Normalization; n != nil {
		setBool(&s.Normalization.Enabled, n.Enabled)
		if n.Mode != nil {
			s.Normalization.Mode = state.NormalizeMonitor
			if *n.Mode == "time" {
				s.Normalization.Mode = state.NormalizeTime
			}
		}
		if n.MonitorSpectrum != nil {
			s.Normalization.MonitorSpectrum = *n.MonitorSpectrum
		}
	}

	if d.DarkCurrent != nil {
		s.DarkCurrent.File = d.DarkCurrent.File
	}
	if sens := d.Sensitivity; sens != nil {
		s.Sensitivity.File = sens.File
		setFloat(&s.Sensitivity.MinEfficiency, sens.MinEfficiency)
		setFloat(&s.Sensitivity.MaxEfficiency, sens.MaxEfficiency)
	}
	setBool(&s.SolidAngle.Enabled, d.SolidAngle)

	if t := d.Transmission; t != nil {
		setBool(&s.Transmission.Enabled, t.Enabled)
		setFloat(&s.Transmission.Value, t.Value)
	}
	if b := d.Background; b != nil {
		setBool(&s.Background.Enabled, b.Enabled)
		setFloat(&s.Background.ScaleFactor, b.ScaleFactor)
	}
	if az := d.Azimuthal; az != nil {
		setBool(&s.Azimuthal.Enabled, az.Enabled)
		setFloat(&s.Azimuthal.QMin, az.QMin)
		setFloat(&s.Azimuthal.QMax, az.QMax)
		setFloat(&s.Azimuthal.QStep, az.QStep)
	}

	if d.Save != nil {
		s.Save.Formats = make([]state.SaveFormat, len(d.Save))
		for i, f := range d.Save {
			s.Save.Formats[i] = state.SaveFormat(strings.TrimSpace(f))
		}
	}

	return nil
}

var (
	reductionModes = map[string]state.ReductionMode{
		"LAB":    state.ModeLAB,
		"HAB":    state.ModeHAB,
		"Merged": state.ModeMerged,
		"All":    state.ModeAll,
	}
	dimensionalities = map[string]state.Dimensionality{
		"1D": state.OneDim,
		"2D": state.TwoDim,
	}
	mergeFits = map[string]state.MergeFit{
		"None":  state.FitNone,
		"Scale": state.FitScale,
		"Shift": state.FitShift,
		"Both":  state.FitBoth,
	}
)

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
