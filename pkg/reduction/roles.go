// Package reduction assembles and runs the ordered steps that reduce one row.
package reduction

import (
	"context"

	"github.com/askiada/go-reduction/pkg/state"
)

// Role is a stage of the reduction. A pipeline holds at most one step per
// role, in CanonicalOrder.
type Role string

const (
	RoleLoad         Role = "Load"
	RoleDarkCurrent  Role = "DarkCurrentSubtract"
	RoleNormalize    Role = "Normalize"
	RoleMask         Role = "Mask"
	RoleSensitivity  Role = "SensitivityCorrect"
	RoleSolidAngle   Role = "SolidAngleCorrect"
	RoleTransmission Role = "TransmissionCorrect"
	RoleBackground   Role = "BackgroundSubtract"
	RoleAzimuthal    Role = "AzimuthalAverage"
	RoleSave         Role = "SaveOutput"
)

// CanonicalOrder returns every role in execution order.
func CanonicalOrder() []Role {
	return []Role{
		RoleLoad,
		RoleDarkCurrent,
		RoleNormalize,
		RoleMask,
		RoleSensitivity,
		RoleSolidAngle,
		RoleTransmission,
		RoleBackground,
		RoleAzimuthal,
		RoleSave,
	}
}

// Shape is the kind of data held by a workspace.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeDetector is counts per spectrum and wavelength bin.
	ShapeDetector
	// ShapeIQ is intensity against momentum transfer.
	ShapeIQ
)

func (s Shape) String() string {
	switch s {
	case ShapeDetector:
		return "Detector"
	case ShapeIQ:
		return "I(Q)"
	default:
		return "None"
	}
}

// Workspace names the data produced by a step.
type Workspace struct {
	Name  string
	Shape Shape
}

type Loader interface {
	Load(ctx context.Context, st *state.AllStates) (Workspace, error)
}

type DarkCurrentSubtracter interface {
	SubtractDarkCurrent(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type Masker interface {
	Mask(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type SensitivityCorrecter interface {
	CorrectSensitivity(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type SolidAngleCorrecter interface {
	CorrectSolidAngle(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type TransmissionCorrecter interface {
	CorrectTransmission(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type BackgroundSubtracter interface {
	SubtractBackground(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type AzimuthalAverager interface {
	AverageAzimuthally(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

// OutputSaver writes ws to disk and returns it unchanged.
type OutputSaver interface {
	Save(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)
}

type stepFunc func(ctx context.Context, st *state.AllStates, ws Workspace) (Workspace, error)

// contract is what a role consumes and produces. An output of ShapeNone means
// the input shape is passed through.
type contract struct {
	in, out  Shape
	included func(st *state.AllStates) bool
	bind     func(impl any) (stepFunc, bool)
}

var contracts = map[Role]contract{
	RoleLoad: {
		in: ShapeNone, out: ShapeDetector,
		included: func(*state.AllStates) bool { return true },
		bind: func(impl any) (stepFunc, bool) {
			l, ok := impl.(Loader)
			if !ok {
				return nil, false
			}

			return func(ctx context.Context, st *state.AllStates, _ Workspace) (Workspace, error) {
				return l.Load(ctx, st)
			}, true
		},
	},
	RoleDarkCurrent: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.DarkCurrent.File != "" },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(DarkCurrentSubtracter)
			if !ok {
				return nil, false
			}

			return s.SubtractDarkCurrent, true
		},
	},
	RoleNormalize: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.Normalization.Enabled },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(Normalizer)
			if !ok {
				return nil, false
			}

			return s.Normalize, true
		},
	},
	RoleMask: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.Mask.Enabled() },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(Masker)
			if !ok {
				return nil, false
			}

			return s.Mask, true
		},
	},
	RoleSensitivity: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.Sensitivity.File != "" },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(SensitivityCorrecter)
			if !ok {
				return nil, false
			}

			return s.CorrectSensitivity, true
		},
	},
	RoleSolidAngle: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.SolidAngle.Enabled },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(SolidAngleCorrecter)
			if !ok {
				return nil, false
			}

			return s.CorrectSolidAngle, true
		},
	},
	RoleTransmission: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.Transmission.Enabled },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(TransmissionCorrecter)
			if !ok {
				return nil, false
			}

			return s.CorrectTransmission, true
		},
	},
	RoleBackground: {
		in: ShapeDetector, out: ShapeDetector,
		included: func(st *state.AllStates) bool { return st.Background.Enabled },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(BackgroundSubtracter)
			if !ok {
				return nil, false
			}

			return s.SubtractBackground, true
		},
	},
	RoleAzimuthal: {
		in: ShapeDetector, out: ShapeIQ,
		included: func(st *state.AllStates) bool {
			return st.Azimuthal.Enabled && st.Reduction.Dimensionality == state.OneDim
		},
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(AzimuthalAverager)
			if !ok {
				return nil, false
			}

			return s.AverageAzimuthally, true
		},
	},
	RoleSave: {
		in: ShapeNone, out: ShapeNone,
		included: func(st *state.AllStates) bool { return st.Save.Enabled() },
		bind: func(impl any) (stepFunc, bool) {
			s, ok := impl.(OutputSaver)
			if !ok {
				return nil, false
			}

			return s.Save, true
		},
	},
}
