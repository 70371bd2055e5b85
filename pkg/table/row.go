package table

import (
	"strings"

	"github.com/google/uuid"

	"github.com/askiada/go-reduction/pkg/options"
)

// RowState is the processing status of a row.
type RowState int

const (
	Unprocessed RowState = iota
	Processing
	Processed
	Error
)

func (s RowState) String() string {
	switch s {
	case Unprocessed:
		return "Unprocessed"
	case Processing:
		return "Processing"
	case Processed:
		return "Processed"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// SampleShape is the geometry used for volume normalisation.
type SampleShape int

const (
	ShapeUnset SampleShape = iota
	ShapeCylinder
	ShapeFlatPlate
	ShapeDisc
)

func (s SampleShape) String() string {
	switch s {
	case ShapeCylinder:
		return "Cylinder"
	case ShapeFlatPlate:
		return "FlatPlate"
	case ShapeDisc:
		return "Disc"
	default:
		return ""
	}
}

// ParseSampleShape accepts names like "flat plate" or " Disc ".
func ParseSampleShape(s string) (SampleShape, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(s), "")) {
	case "cylinder":
		return ShapeCylinder, true
	case "flatplate":
		return ShapeFlatPlate, true
	case "disc":
		return ShapeDisc, true
	case "":
		return ShapeUnset, true
	default:
		return ShapeUnset, false
	}
}

// Runs holds the run numbers of a row. Only SampleScatter is mandatory.
type Runs struct {
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
}

// RowEntry is one line of the batch table.
type RowEntry struct {
	ID uuid.UUID
	Runs

	OutputName      string
	UserFile        string
	SampleThickness float64
	SampleHeight    float64
	SampleWidth     float64
	SampleShape     SampleShape
	Options         *options.Overrides

	state   RowState
	toolTip string
}

type RowOption func(r *RowEntry)

func WithRuns(runs Runs) RowOption {
	return func(r *RowEntry) {
		r.Runs = runs
	}
}

func WithSampleScatter(run string) RowOption {
	return func(r *RowEntry) {
		r.SampleScatter = run
	}
}

func WithOutputName(name string) RowOption {
	return func(r *RowEntry) {
		r.OutputName = name
	}
}

func WithUserFile(path string) RowOption {
	return func(r *RowEntry) {
		r.UserFile = path
	}
}

func WithSampleThickness(thickness float64) RowOption {
	return func(r *RowEntry) {
		r.SampleThickness = thickness
	}
}

func WithSampleGeometry(height, width float64) RowOption {
	return func(r *RowEntry) {
		r.SampleHeight = height
		r.SampleWidth = width
	}
}

func WithSampleShape(shape SampleShape) RowOption {
	return func(r *RowEntry) {
		r.SampleShape = shape
	}
}

func WithOptions(o *options.Overrides) RowOption {
	return func(r *RowEntry) {
		if o != nil {
			r.Options = o
		}
	}
}

// NewRowEntry creates an unprocessed row.
func NewRowEntry(opts ...RowOption) *RowEntry {
	r := &RowEntry{
		ID:      uuid.New(),
		Options: options.New(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SetOptionsString replaces the override column with the parsed value of s.
// On error the previous overrides are kept.
func (r *RowEntry) SetOptionsString(s string) error {
	o, err := options.Parse(s)
	if err != nil {
		return err
	}
	r.Options = o

	return nil
}

// SetSampleShapeString sets the shape from text. Unrecognised text leaves the
// current shape untouched and reports false.
func (r *RowEntry) SetSampleShapeString(s string) bool {
	shape, ok := ParseSampleShape(s)
	if ok {
		r.SampleShape = shape
	}

	return ok
}

func (r *RowEntry) State() RowState {
	return r.state
}

func (r *RowEntry) ToolTip() string {
	return r.toolTip
}

func (r *RowEntry) setState(state RowState, toolTip string) {
	r.state = state
	r.toolTip = toolTip
}

// IsEmpty reports whether the row carries no user input.
func (r *RowEntry) IsEmpty() bool {
	return r.Runs == (Runs{}) &&
		r.OutputName == "" &&
		r.UserFile == "" &&
		r.SampleThickness == 0 &&
		r.SampleHeight == 0 &&
		r.SampleWidth == 0 &&
		r.SampleShape == ShapeUnset &&
		(r.Options == nil || r.Options.Len() == 0)
}

// Equal compares rows by content and status, ignoring their IDs.
func (r *RowEntry) Equal(other *RowEntry) bool {
	if r == nil || other == nil {
		return r == other
	}

	return r.Runs == other.Runs &&
		r.OutputName == other.OutputName &&
		r.UserFile == other.UserFile &&
		r.SampleThickness == other.SampleThickness &&
		r.SampleHeight == other.SampleHeight &&
		r.SampleWidth == other.SampleWidth &&
		r.SampleShape == other.SampleShape &&
		r.optionsString() == other.optionsString() &&
		r.state == other.state &&
		r.toolTip == other.toolTip
}

func (r *RowEntry) optionsString() string {
	if r.Options == nil {
		return ""
	}

	return r.Options.String()
}

// Clone returns a copy that shares nothing mutable with r. The ID is kept.
func (r *RowEntry) Clone() *RowEntry {
	c := *r
	if r.Options != nil {
		c.Options = r.Options.Clone()
	} else {
		c.Options = options.New()
	}

	return &c
}
