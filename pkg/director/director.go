// Package director composes the state used to reduce a single row.
//
// Settings are layered, later layers winning field by field: instrument
// defaults and the user file (the base), the top level GUI settings, then the
// overrides typed into the row's option column.
package director

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/options"
	"github.com/askiada/go-reduction/pkg/state"
	"github.com/askiada/go-reduction/pkg/table"
)

var (
	ErrNoBase       = errors.New("director needs a base state")
	ErrNoFileLoader = errors.New("row names a user file but no loader is configured")
)

// UserFileLoader loads the base state described by a user file.
type UserFileLoader interface {
	Load(path string) (*state.AllStates, error)
}

// Director turns rows into validated states. It is safe for concurrent use:
// the base is only ever read.
type Director struct {
	base   *state.AllStates
	loader UserFileLoader
	logger *slog.Logger
}

type Option func(d *Director)

// WithUserFileLoader lets rows point at their own user file.
func WithUserFileLoader(loader UserFileLoader) Option {
	return func(d *Director) {
		d.loader = loader
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Director) {
		d.logger = logger
	}
}

// New returns a director composing on top of base. The director keeps its own
// copy, later changes to base are not seen.
func New(base *state.AllStates, opts ...Option) (*Director, error) {
	if base == nil {
		return nil, ErrNoBase
	}
	d := &Director{
		base:   base.Clone(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Base returns a copy of the state rows are composed from.
func (d *Director) Base() *state.AllStates {
	return d.base.Clone()
}

// CreateState builds and validates the state for row. Neither the base nor
// the row are modified. On error no state is returned.
func (d *Director) CreateState(row *table.RowEntry, top state.TopLevel) (*state.AllStates, error) {
	s, err := d.start(row)
	if err != nil {
		return nil, err
	}

	applyRow(s, row)
	top.Apply(s)
	if err := applyOverrides(s, row.Options); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		d.logger.Debug("row state rejected",
			slog.String("row", row.ID.String()),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	return s, nil
}

func (d *Director) start(row *table.RowEntry) (*state.AllStates, error) {
	if row.UserFile == "" {
		return d.base.Clone(), nil
	}
	if d.loader == nil {
		return nil, errors.Wrap(ErrNoFileLoader, row.UserFile)
	}
	s, err := d.loader.Load(row.UserFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load row user file %s", row.UserFile)
	}

	// The loader may hand out a cached state.
	return s.Clone(), nil
}

func applyRow(s *state.AllStates, row *table.RowEntry) {
	data := &s.Data
	data.SampleScatter = row.SampleScatter
	data.SampleScatterPeriod = row.SampleScatterPeriod
	data.SampleTransmission = row.SampleTransmission
	data.SampleTransmissionPeriod = row.SampleTransmissionPeriod
	data.SampleDirect = row.SampleDirect
	data.SampleDirectPeriod = row.SampleDirectPeriod
	data.CanScatter = row.CanScatter
	data.CanScatterPeriod = row.CanScatterPeriod
	data.CanTransmission = row.CanTransmission
	data.CanTransmissionPeriod = row.CanTransmissionPeriod
	data.CanDirect = row.CanDirect
	data.CanDirectPeriod = row.CanDirectPeriod

	data.OutputName = row.OutputName
	if data.OutputName == "" {
		data.OutputName = row.SampleScatter
	}

	if row.SampleThickness != 0 {
		s.Sample.Thickness = row.SampleThickness
	}
	if row.SampleHeight != 0 {
		s.Sample.Height = row.SampleHeight
	}
	if row.SampleWidth != 0 {
		s.Sample.Width = row.SampleWidth
	}
	if row.SampleShape != table.ShapeUnset {
		s.Sample.Shape = row.SampleShape.String()
	}

	if row.SampleTransmission != "" && row.SampleDirect != "" {
		s.Transmission.Enabled = true
	}
	if row.CanScatter != "" {
		s.Background.Enabled = true
	}
}

type applier func(s *state.AllStates, o *options.Overrides, key string)

// appliers maps every registered override to the one section it sets.
var appliers = map[string]applier{
	options.WavelengthMin: func(s *state.AllStates, o *options.Overrides, key string) {
		v, _ := o.Float(key)
		s.Wavelength.Low = fill(len(s.Wavelength.Low), v)
	},
	options.WavelengthMax: func(s *state.AllStates, o *options.Overrides, key string) {
		v, _ := o.Float(key)
		s.Wavelength.High = fill(len(s.Wavelength.High), v)
	},
	options.MergeScale: func(s *state.AllStates, o *options.Overrides, key string) {
		s.Reduction.MergeScale, _ = o.Float(key)
	},
	options.MergeShift: func(s *state.AllStates, o *options.Overrides, key string) {
		s.Reduction.MergeShift, _ = o.Float(key)
	},
	options.EventSlices: func(s *state.AllStates, o *options.Overrides, key string) {
		s.Slice.EventSlices, _ = o.Text(key)
	},
}

func applyOverrides(s *state.AllStates, o *options.Overrides) error {
	if o == nil {
		return nil
	}
	for key := range o.Options() {
		apply, ok := appliers[key]
		if !ok {
			return errors.Wrapf(options.ErrUnknownOverrideKey, "no section for %s", key)
		}
		apply(s, o, key)
	}

	return nil
}

// fill returns n copies of v, or a single one when there are no ranges yet.
func fill(n int, v float64) []float64 {
	if n == 0 {
		n = 1
	}
	res := make([]float64, n)
	for i := range res {
		res[i] = v
	}

	return res
}
