package runcfg

import "github.com/velisar/rigidmd/pbc"

// Documented defaults, the single source of truth for Default().
const (
	// DefaultTimeStep is the integration time step in ps.
	DefaultTimeStep = 0.002

	// DefaultIterations is the number of correction iterations of the
	// iterative projection backend.
	DefaultIterations = 1

	// DefaultProjectionOrder is the expansion order of the iterative
	// projection backend.
	DefaultProjectionOrder = 4

	// DefaultRelaxTolerance is the relative tolerance of the legacy
	// relaxation backend.
	DefaultRelaxTolerance = 1e-4
)

// Params is the resolved run configuration. Immutable once handed to the
// constraint coordinator.
type Params struct {
	Integrator       Integrator
	Algorithm        Algorithm
	PressureCoupling PressureCoupling
	PBC              pbc.Kind

	// TimeStep is the integration step in ps; zero is legal only for
	// force-displacement minimization contexts.
	TimeStep float64
	// InitTime is the simulation time of step 0, in ps.
	InitTime float64

	// Iterations and ProjectionOrder parameterize the iterative projection
	// backend.
	Iterations      int
	ProjectionOrder int

	// RelaxTolerance and RelaxSOR parameterize the legacy relaxation
	// backend (tolerance and successive-over-relaxation toggle).
	RelaxTolerance float64
	RelaxSOR       bool

	// FreeEnergy enables free-energy interpolation; DeltaLambda is the
	// per-step rate of the interpolation parameter.
	FreeEnergy  bool
	DeltaLambda float64

	// Pull enables the external pulling collaborator.
	Pull bool

	// FlexibleStep is the step size for flexible constraining; zero demotes
	// flexible constraints to rigid at their current length.
	FlexibleStep float64

	// MaxWarnings is the resolved warning ceiling (see ResolveMaxWarnings).
	MaxWarnings int
}

// Default returns production-safe parameters: leap-frog dynamics with the
// iterative projection backend, full periodicity, no coupling extras.
func Default() Params {
	return Params{
		Integrator:       LeapFrog,
		Algorithm:        IterativeProjection,
		PressureCoupling: NoPressureCoupling,
		PBC:              pbc.XYZ,
		TimeStep:         DefaultTimeStep,
		Iterations:       DefaultIterations,
		ProjectionOrder:  DefaultProjectionOrder,
		RelaxTolerance:   DefaultRelaxTolerance,
		MaxWarnings:      DefaultMaxWarnings,
	}
}

// Validate checks numeric sanity of the parameters. Cross-cutting checks
// against the topology (algorithm legality, pressure coupling) belong to
// the constraint coordinator, which sees both sides.
func (p Params) Validate() error {
	if p.TimeStep < 0 {
		return ErrBadTimeStep
	}
	if p.Iterations <= 0 || p.ProjectionOrder <= 0 {
		return ErrBadIterations
	}
	return nil
}
