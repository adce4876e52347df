package constraint

import (
	"errors"

	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/vec"
)

// Sentinel errors returned by New for illegal configurations.
var (
	// ErrRelaxationSpansGroups indicates legacy relaxation combined with
	// domain decomposition while constraints cross atom groups; the sweeps
	// cannot see both sides of a split constraint.
	ErrRelaxationSpansGroups = errors.New(
		"constraint: legacy relaxation cannot handle group-spanning constraints under domain decomposition")

	// ErrRelaxationFlexible indicates legacy relaxation on a topology with
	// flexible constraints, which need velocity and force constraining the
	// relaxation backend cannot provide.
	ErrRelaxationFlexible = errors.New(
		"constraint: flexible constraints require the iterative projection algorithm")

	// ErrPressureCoupling indicates the MTTK barostat, with which constraints
	// are not implemented.
	ErrPressureCoupling = errors.New(
		"constraint: constraints are not implemented with MTTK pressure coupling")
)

// Panic messages for programming-contract violations.
const (
	panicForceDisplacement = "constraint: force-displacement constraining outside energy minimization"
	panicBadQuantity       = "constraint: unknown quantity kind"
	panicVirialQuantity    = "constraint: no virial factor for this quantity kind"
	panicRelaxationKind    = "constraint: legacy relaxation cannot constrain this quantity kind"
	panicNilOption         = "constraint: option value must not be nil"
	panicBadThreads        = "constraint: thread count must be positive"
)

// QuantityKind selects which physical quantity a call to Apply constrains
// and how the backends interpret their buffers.
type QuantityKind int

const (
	// Coordinates corrects proposed positions against the previous ones.
	Coordinates QuantityKind = iota
	// Velocities removes constraint-violating velocity components.
	Velocities
	// Derivatives projects a generic derivative quantity.
	Derivatives
	// Forces projects forces without inverse-mass weighting.
	Forces
	// ForceDisplacement projects mass-weighted displacement during energy
	// minimization; illegal under any other integrator.
	ForceDisplacement
	// FlexibleDerivative projects onto flexible constraints only.
	FlexibleDerivative
)

// String returns the log spelling of k.
func (k QuantityKind) String() string {
	switch k {
	case Coordinates:
		return "coordinates"
	case Velocities:
		return "velocities"
	case Derivatives:
		return "derivatives"
	case Forces:
		return "forces"
	case ForceDisplacement:
		return "force-displacement"
	case FlexibleDerivative:
		return "flexible-derivative"
	default:
		return "unknown"
	}
}

// FatalFunc terminates the run on unrecoverable escalation. The default
// implementation logs and exits the process; tests inject a recorder.
type FatalFunc func(format string, args ...any)

// DomainComm is the domain-decomposition collaborator: coordinate exchange
// for constrained boundary atoms and ownership metadata.
type DomainComm interface {
	// MoveX gathers the non-local coordinates that local constraints touch
	// into x and xprime, past the home-atom range.
	MoveX(box pbc.Box, x, xprime []vec.Vec3)
	// HomeAtoms returns the count of locally owned atoms; entries at or past
	// this index are received copies.
	HomeAtoms() int
	// NeedsComm reports whether any local constraint crosses a domain
	// boundary. When false, every constrained molecule is whole inside the
	// domain and positions need no periodicity handling.
	NeedsComm() bool
}

// Puller is the constraint-based pulling collaborator, applied to corrected
// coordinates only.
type Puller interface {
	// HasConstraint reports whether any pull coordinate is of the constraint
	// type; pulling by force needs no hook here.
	HasConstraint() bool
	// Constrain applies the pull constraints at simulation time t.
	Constrain(t, dt float64, masses []float64, box pbc.Box,
		x, xprime, v []vec.Vec3, vir *vec.Mat3)
}

// EssentialDynamics is the essential-dynamics collaborator, applied to
// corrected coordinates on every sub-step after the first.
type EssentialDynamics interface {
	Apply(step int64, xprime, v []vec.Vec3, box pbc.Box)
}

// DiagnosticsSink receives step-stamped before/after coordinates when a
// backend fails. Implementations must not fail outward; dumping is a
// diagnostic courtesy, independent of constraint correctness.
type DiagnosticsSink interface {
	Dump(step int64, x, xprime []vec.Vec3, box pbc.Box)
}
