package batchfile

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/table"
)

// Keys used by batch files. Period keys take the period of the run with the
// same prefix.
const (
	KeySampleScatter            = "sample_sans"
	KeySampleScatterPeriod      = "sample_sans_period"
	KeySampleTransmission       = "sample_trans"
	KeySampleTransmissionPeriod = "sample_trans_period"
	KeySampleDirect             = "sample_direct_beam"
	KeySampleDirectPeriod       = "sample_direct_beam_period"
	KeyCanScatter               = "can_sans"
	KeyCanScatterPeriod         = "can_sans_period"
	KeyCanTransmission          = "can_trans"
	KeyCanTransmissionPeriod    = "can_trans_period"
	KeyCanDirect                = "can_direct_beam"
	KeyCanDirectPeriod          = "can_direct_beam_period"
	KeyOutputName               = "output_as"
	KeyUserFile                 = "user_file"
	KeySampleThickness          = "sample_thickness"
	KeySampleHeight             = "sample_height"
	KeySampleWidth              = "sample_width"
	KeySampleShape              = "sample_shape"
	KeyOptions                  = "options"
)

type field struct {
	key string
	get func(r *table.RowEntry) string
	set func(r *table.RowEntry, value string) error
}

func text(key string, ptr func(r *table.RowEntry) *string) field {
	return field{
		key: key,
		get: func(r *table.RowEntry) string { return *ptr(r) },
		set: func(r *table.RowEntry, value string) error {
			*ptr(r) = value

			return nil
		},
	}
}

func number(key string, ptr func(r *table.RowEntry) *float64) field {
	return field{
		key: key,
		get: func(r *table.RowEntry) string {
			if v := *ptr(r); v != 0 {
				return strconv.FormatFloat(v, 'g', -1, 64)
			}

			return ""
		},
		set: func(r *table.RowEntry, value string) error {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return errors.Wrapf(ErrInvalidValue, "%s %q", key, value)
			}
			*ptr(r) = v

			return nil
		},
	}
}

// fields lists every column in the order files are written.
var fields = []field{
	text(KeySampleScatter, func(r *table.RowEntry) *string { return &r.SampleScatter }),
	text(KeySampleScatterPeriod, func(r *table.RowEntry) *string { return &r.SampleScatterPeriod }),
	text(KeySampleTransmission, func(r *table.RowEntry) *string { return &r.SampleTransmission }),
	text(KeySampleTransmissionPeriod, func(r *table.RowEntry) *string { return &r.SampleTransmissionPeriod }),
	text(KeySampleDirect, func(r *table.RowEntry) *string { return &r.SampleDirect }),
	text(KeySampleDirectPeriod, func(r *table.RowEntry) *string { return &r.SampleDirectPeriod }),
	text(KeyCanScatter, func(r *table.RowEntry) *string { return &r.CanScatter }),
	text(KeyCanScatterPeriod, func(r *table.RowEntry) *string { return &r.CanScatterPeriod }),
	text(KeyCanTransmission, func(r *table.RowEntry) *string { return &r.CanTransmission }),
	text(KeyCanTransmissionPeriod, func(r *table.RowEntry) *string { return &r.CanTransmissionPeriod }),
	text(KeyCanDirect, func(r *table.RowEntry) *string { return &r.CanDirect }),
	text(KeyCanDirectPeriod, func(r *table.RowEntry) *string { return &r.CanDirectPeriod }),
	text(KeyOutputName, func(r *table.RowEntry) *string { return &r.OutputName }),
	text(KeyUserFile, func(r *table.RowEntry) *string { return &r.UserFile }),
	number(KeySampleThickness, func(r *table.RowEntry) *float64 { return &r.SampleThickness }),
	number(KeySampleHeight, func(r *table.RowEntry) *float64 { return &r.SampleHeight }),
	number(KeySampleWidth, func(r *table.RowEntry) *float64 { return &r.SampleWidth }),
	{
		key: KeySampleShape,
		get: func(r *table.RowEntry) string { return r.SampleShape.String() },
		set: func(r *table.RowEntry, value string) error {
			if !r.SetSampleShapeString(value) {
				return errors.Wrapf(ErrInvalidValue, "%s %q", KeySampleShape, value)
			}

			return nil
		},
	},
	{
		key: KeyOptions,
		get: func(r *table.RowEntry) string {
			if r.Options == nil {
				return ""
			}

			return r.Options.String()
		},
		set: func(r *table.RowEntry, value string) error {
			return errors.Wrap(r.SetOptionsString(value), KeyOptions)
		},
	},
}

var fieldsByKey = func() map[string]field {
	res := make(map[string]field, len(fields))
	for _, f := range fields {
		res[f.key] = f
	}

	return res
}()

func lookup(key string) (field, error) {
	f, ok := fieldsByKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return field{}, errors.Wrapf(ErrUnknownKey, "%q", key)
	}

	return f, nil
}

// newRow applies values, keyed by column, to a new row. Empty values are
// skipped.
func newRow(keys, values []string) (*table.RowEntry, error) {
	row := table.NewRowEntry()
	for i, key := range keys {
		if i >= len(values) {
			break
		}
		value := strings.TrimSpace(values[i])
		if value == "" {
			continue
		}
		f, err := lookup(key)
		if err != nil {
			return nil, err
		}
		if err := f.set(row, value); err != nil {
			return nil, err
		}
	}
	if row.SampleScatter == "" {
		return nil, ErrMissingSampleScatter
	}

	return row, nil
}
