package runcfg

import (
	"errors"
	"math"
)

// Sentinel errors returned by parsing and validation.
var (
	// ErrBadIntegrator indicates an unknown integrator name.
	ErrBadIntegrator = errors.New("runcfg: unknown integrator")

	// ErrBadAlgorithm indicates an unknown constraint-algorithm name.
	ErrBadAlgorithm = errors.New("runcfg: unknown constraint algorithm")

	// ErrBadPressureCoupling indicates an unknown pressure-coupling name.
	ErrBadPressureCoupling = errors.New("runcfg: unknown pressure coupling")

	// ErrBadPBC indicates an unknown periodicity name.
	ErrBadPBC = errors.New("runcfg: unknown periodicity kind")

	// ErrBadTimeStep indicates a negative time step.
	ErrBadTimeStep = errors.New("runcfg: time step must be non-negative")

	// ErrBadIterations indicates a non-positive iteration count or
	// projection-expansion order.
	ErrBadIterations = errors.New("runcfg: iterations and order must be positive")
)

// Integrator identifies the time-stepping scheme of the run. The constraint
// coordinator only inspects the three family predicates below; the stepping
// itself lives outside this module.
type Integrator int

const (
	// LeapFrog is the default molecular-dynamics leap-frog integrator.
	LeapFrog Integrator = iota
	// VelocityVerlet is the velocity-Verlet integrator.
	VelocityVerlet
	// VelocityVerletAK is velocity Verlet with averaged kinetics.
	VelocityVerletAK
	// StochasticDynamics is leap-frog stochastic dynamics.
	StochasticDynamics
	// BrownianDynamics is position-Langevin dynamics.
	BrownianDynamics
	// SteepestDescent is steepest-descent energy minimization.
	SteepestDescent
	// ConjugateGradient is conjugate-gradient energy minimization.
	ConjugateGradient
	// LBFGS is limited-memory BFGS energy minimization.
	LBFGS
)

var integratorNames = map[Integrator]string{
	LeapFrog:           "md",
	VelocityVerlet:     "md-vv",
	VelocityVerletAK:   "md-vv-avek",
	StochasticDynamics: "sd",
	BrownianDynamics:   "bd",
	SteepestDescent:    "steep",
	ConjugateGradient:  "cg",
	LBFGS:              "l-bfgs",
}

// String returns the configuration-file spelling of i.
func (i Integrator) String() string {
	if s, ok := integratorNames[i]; ok {
		return s
	}
	return "unknown"
}

// IsDynamics reports whether i advances real dynamics (as opposed to energy
// minimization).
func (i Integrator) IsDynamics() bool {
	switch i {
	case LeapFrog, VelocityVerlet, VelocityVerletAK, StochasticDynamics, BrownianDynamics:
		return true
	default:
		return false
	}
}

// IsVelocityVerlet reports whether i belongs to the velocity-Verlet family.
// The constraint virial is doubled for this family: only half the true
// displacement is constrained per solver call in that scheme.
func (i Integrator) IsVelocityVerlet() bool {
	return i == VelocityVerlet || i == VelocityVerletAK
}

// IsEnergyMinimization reports whether i is an energy minimizer.
func (i Integrator) IsEnergyMinimization() bool {
	switch i {
	case SteepestDescent, ConjugateGradient, LBFGS:
		return true
	default:
		return false
	}
}

// ParseIntegrator maps a configuration-file name to an Integrator.
func ParseIntegrator(s string) (Integrator, error) {
	for i, name := range integratorNames {
		if name == s {
			return i, nil
		}
	}
	return 0, ErrBadIntegrator
}

// Algorithm selects the bond-constraint backend. The analytic triplet
// backend is independent of this choice and always used for rigid triplets.
type Algorithm int

const (
	// IterativeProjection is the iterative projection method (the default).
	IterativeProjection Algorithm = iota
	// LegacyRelaxation is the legacy iterative relaxation method.
	LegacyRelaxation
)

// String returns the configuration-file spelling of a.
func (a Algorithm) String() string {
	switch a {
	case IterativeProjection:
		return "lincs"
	case LegacyRelaxation:
		return "shake"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a configuration-file name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "lincs":
		return IterativeProjection, nil
	case "shake":
		return LegacyRelaxation, nil
	default:
		return 0, ErrBadAlgorithm
	}
}

// PressureCoupling identifies the barostat of the run. The coordinator only
// needs to reject the one combination that is not implemented.
type PressureCoupling int

const (
	// NoPressureCoupling runs without a barostat.
	NoPressureCoupling PressureCoupling = iota
	// Berendsen is weak-coupling pressure scaling.
	Berendsen
	// ParrinelloRahman is extended-ensemble pressure coupling.
	ParrinelloRahman
	// MTTK is the Martyna-Tuckerman-Tobias-Klein barostat; constraints are
	// not implemented with it.
	MTTK
)

// String returns the configuration-file spelling of pc.
func (pc PressureCoupling) String() string {
	switch pc {
	case NoPressureCoupling:
		return "no"
	case Berendsen:
		return "berendsen"
	case ParrinelloRahman:
		return "parrinello-rahman"
	case MTTK:
		return "mttk"
	default:
		return "unknown"
	}
}

// ParsePressureCoupling maps a configuration-file name to a PressureCoupling.
func ParsePressureCoupling(s string) (PressureCoupling, error) {
	switch s {
	case "no", "":
		return NoPressureCoupling, nil
	case "berendsen":
		return Berendsen, nil
	case "parrinello-rahman":
		return ParrinelloRahman, nil
	case "mttk":
		return MTTK, nil
	default:
		return 0, ErrBadPressureCoupling
	}
}

// Warning-ceiling defaults.
const (
	// DefaultMaxWarnings is the ceiling used when no override is configured.
	DefaultMaxWarnings = 999

	// WarningsDisabled is the resolved "never fatal" sentinel.
	WarningsDisabled = math.MaxInt
)

// ResolveMaxWarnings applies the override semantics: nil keeps the default,
// a non-negative value is the ceiling, a negative value disables it.
func ResolveMaxWarnings(override *int) int {
	switch {
	case override == nil:
		return DefaultMaxWarnings
	case *override < 0:
		return WarningsDisabled
	default:
		return *override
	}
}
