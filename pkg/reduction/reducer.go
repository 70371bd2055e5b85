package reduction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/state"
)

var (
	ErrNoLoader          = errors.New("pipeline has no load step")
	ErrUnknownRole       = errors.New("unknown role")
	ErrIncompatibleStep  = errors.New("step does not implement role")
	ErrMissingStep       = errors.New("no step registered for enabled role")
	ErrContractViolation = errors.New("step broke its shape contract")
)

// StepExecutionError reports the step that aborted a row.
type StepExecutionError struct {
	Role Role
	Step string
	Err  error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s (%s): %s", e.Step, e.Role, e.Err)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Err
}

// Step is an assembled stage ready to run.
type Step struct {
	Role Role
	// Name is the implementation's type name, for logs and drawings.
	Name string

	run stepFunc
	out Shape
}

// Output is the shape the step produces, ShapeNone when it passes its input
// through.
func (s *Step) Output() Shape {
	return s.out
}

// Reducer holds one implementation per role and assembles pipelines from it.
// Implementations are shared by every pipeline it builds. Register steps
// before building, Build is safe for concurrent use but Substitute is not.
type Reducer struct {
	impls  map[Role]any
	logger *slog.Logger
}

type Option func(r *Reducer)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reducer) {
		r.logger = logger
	}
}

// WithStep substitutes impl for role. It panics if impl does not fit the
// role, use Substitute to get an error instead.
func WithStep(role Role, impl any) Option {
	return func(r *Reducer) {
		if err := r.Substitute(role, impl); err != nil {
			panic(err)
		}
	}
}

// NewReducer returns a reducer with no steps registered.
func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{
		impls:  make(map[Role]any, len(contracts)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Substitute registers impl for role, replacing any earlier implementation.
// impl must satisfy the role's interface, for instance Masker for RoleMask.
func (r *Reducer) Substitute(role Role, impl any) error {
	c, ok := contracts[role]
	if !ok {
		return errors.Wrap(ErrUnknownRole, string(role))
	}
	if _, ok := c.bind(impl); !ok {
		return errors.Wrapf(ErrIncompatibleStep, "%T for %s", impl, role)
	}
	r.impls[role] = impl

	return nil
}

// Build returns the steps needed by st in canonical order. Load is always
// first. st is not modified.
func (r *Reducer) Build(st *state.AllStates) ([]*Step, error) {
	if _, ok := r.impls[RoleLoad]; !ok {
		return nil, ErrNoLoader
	}

	steps := []*Step{}
	for _, role := range CanonicalOrder() {
		c := contracts[role]
		if !c.included(st) {
			continue
		}
		impl, ok := r.impls[role]
		if !ok {
			return nil, errors.Wrap(ErrMissingStep, string(role))
		}
		run, _ := c.bind(impl)
		steps = append(steps, &Step{
			Role: role,
			Name: stepName(impl),
			run:  run,
			out:  c.out,
		})
	}
	r.logger.Debug("pipeline assembled",
		slog.String("output", st.Data.OutputName),
		slog.Int("steps", len(steps)),
	)

	return steps, nil
}

func stepName(impl any) string {
	if n, ok := impl.(interface{ Name() string }); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", impl)
}

// Run executes steps in order, each consuming the workspace produced by the
// one before. The first failure stops the row and is returned as a
// *StepExecutionError.
func Run(ctx context.Context, st *state.AllStates, steps []*Step) (Workspace, error) {
	if len(steps) == 0 || steps[0].Role != RoleLoad {
		return Workspace{}, ErrNoLoader
	}

	var ws Workspace
	for _, step := range steps {
		out, err := step.run(ctx, st, ws)
		if err != nil {
			return Workspace{}, &StepExecutionError{Role: step.Role, Step: step.Name, Err: err}
		}
		want := step.out
		if want == ShapeNone {
			want = ws.Shape
		}
		if out.Shape != want {
			return Workspace{}, &StepExecutionError{
				Role: step.Role,
				Step: step.Name,
				Err:  errors.Wrapf(ErrContractViolation, "produced %s, expected %s", out.Shape, want),
			}
		}
		ws = out
	}

	return ws, nil
}
