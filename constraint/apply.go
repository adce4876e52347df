package constraint

import (
	"fmt"
	"os"
	"sync"

	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/runcfg"
	"github.com/velisar/rigidmd/vec"
)

// Step carries one constraint application: which quantity to constrain and
// the buffers it lives in. X holds the previous (constraint-satisfying)
// positions; XPrime holds the quantity being corrected in place (proposed
// positions for Coordinates, the derivative buffer otherwise).
type Step struct {
	Kind QuantityKind

	// Step is the integrator step index; DeltaStep is the fractional
	// sub-step offset used for free-energy interpolation and the external
	// hooks.
	Step      int64
	DeltaStep int64

	// StepScaling multiplies the time step before the inverse is taken;
	// zero means 1.
	StepScaling float64

	X       []vec.Vec3
	XPrime  []vec.Vec3
	MinProj []vec.Vec3
	V       []vec.Vec3

	Box pbc.Box
	// MolPBC marks molecules possibly broken across periodic images.
	MolPBC bool

	// Lambda is the free-energy interpolation parameter; DvDLambda, when
	// non-nil, accumulates the constraint contribution to dH/dλ.
	Lambda    float64
	DvDLambda *float64

	// Virial, when non-nil, receives the scaled constraint virial.
	Virial *vec.Mat3
}

// Apply runs the configured backends on one quantity kind. It returns false
// when any backend reported an unrecovered failure; callers treat that as
// "this step's geometry is suspect" and leave fatal handling to the warning
// ceiling. On the nil (disabled) Coordinator it is a successful no-op.
func (c *Coordinator) Apply(st *Step) bool {
	if c == nil {
		return true
	}
	if st.Kind == ForceDisplacement && !c.params.Integrator.IsEnergyMinimization() {
		// The constraint coupling matrices are mass-weighted for
		// minimization only; any other integrator here is a logic error.
		panic(panicForceDisplacement)
	}

	scaling := st.StepScaling
	if scaling == 0 {
		scaling = 1
	}
	// dt == 0 happens in force-displacement-only minimization; the inverse
	// becomes a multiplicative no-op.
	invdt := 0.0
	if dt := scaling * c.params.TimeStep; dt != 0 {
		invdt = 1 / dt
	}

	lambda := st.Lambda
	if c.params.FreeEnergy && c.params.Integrator.IsDynamics() {
		lambda += float64(st.DeltaStep) * c.params.DeltaLambda
	}

	pb, ok := c.stepPBC(st)
	if !ok {
		return false
	}

	if c.comm != nil && c.spansGroups {
		c.comm.MoveX(st.Box, st.X, st.XPrime)
		if st.V != nil {
			// Non-local velocity slots are never written by the exchange but
			// are read by the unconditional correction accumulation.
			for i := c.comm.HomeAtoms(); i < len(st.V); i++ {
				st.V[i] = vec.Vec3{}
			}
		}
	}

	calcVir := st.Virial != nil
	var rawVir vec.Mat3
	success := true
	dump := false

	if c.lincs != nil {
		if !c.applyIterative(st, pb, invdt, lambda, calcVir, &rawVir) {
			success = false
			dump = true
		}
	}
	if c.shake != nil {
		if !c.applyRelaxation(st, pb, invdt, lambda, calcVir, &rawVir) {
			success = false
			dump = true
		}
	}
	if c.settle != nil {
		if !c.applyTriplets(st, pb, invdt, calcVir, &rawVir) {
			success = false
			dump = true
		}
	}

	if calcVir {
		// The physical factor depends on the raw integrator time step only;
		// StepScaling enters the solver corrections, never the virial.
		virInvdt := 0.0
		if c.params.TimeStep != 0 {
			virInvdt = 1 / c.params.TimeStep
		}
		*st.Virial = rawVir.Scale(c.virialFactor(st.Kind, virInvdt))
	}

	if dump && c.sink != nil {
		c.sink.Dump(st.Step, st.X, st.XPrime, st.Box)
	}

	if st.Kind == Coordinates {
		if c.puller != nil && c.puller.HasConstraint() {
			t := c.params.InitTime
			if c.params.Integrator.IsDynamics() {
				t += float64(st.Step+st.DeltaStep) * c.params.TimeStep
			}
			c.puller.Constrain(t, c.params.TimeStep, c.masses, st.Box,
				st.X, st.XPrime, st.V, st.Virial)
		}
		if c.ed != nil && st.DeltaStep > 0 {
			c.ed.Apply(st.Step, st.XPrime, st.V, st.Box)
		}
	}
	return success
}

// stepPBC resolves the periodicity context of one call. Full handling is
// needed only when the run is periodic and constraints can reach across a
// molecule image or domain boundary; a domain-decomposed run whose
// constraints are all domain-internal needs none.
func (c *Coordinator) stepPBC(st *Step) (*pbc.PBC, bool) {
	needed := c.params.PBC != pbc.None &&
		(c.comm != nil || st.MolPBC) &&
		!(c.comm != nil && !(c.spansGroups && c.comm.NeedsComm()))
	if !needed {
		return nil, true
	}
	pb, err := pbc.New(c.params.PBC, st.Box)
	if err != nil {
		c.fatal("constraint: step %d: invalid periodic box: %v", st.Step, err)
		return nil, false
	}
	return pb, true
}

// applyIterative dispatches one quantity kind to the iterative projection
// backend and escalates on failure.
func (c *Coordinator) applyIterative(st *Step, pb *pbc.PBC, invdt, lambda float64,
	calcVir bool, vir *vec.Mat3) bool {
	switch st.Kind {
	case Coordinates:
		ok := c.lincs.SolveCoords(pb, st.X, st.XPrime, invdt, st.V,
			lambda, st.DvDLambda, calcVir, vir)
		if !ok {
			c.escalate(runcfg.IterativeProjection.String(), &c.warnBond, st.Step)
		}
		return ok
	case Velocities, Derivatives, ForceDisplacement:
		c.lincs.Proj(pb, st.X, st.XPrime, st.MinProj, true, false, calcVir, vir)
	case Forces:
		c.lincs.Proj(pb, st.X, st.XPrime, st.MinProj, false, false, calcVir, vir)
	case FlexibleDerivative:
		c.lincs.Proj(pb, st.X, st.XPrime, st.MinProj, true, true, calcVir, vir)
	default:
		panic(panicBadQuantity)
	}
	return true
}

// applyRelaxation dispatches one quantity kind to the legacy relaxation
// backend. Only coordinates and velocities are constrainable there.
func (c *Coordinator) applyRelaxation(st *Step, pb *pbc.PBC, invdt, lambda float64,
	calcVir bool, vir *vec.Mat3) bool {
	var ok bool
	switch st.Kind {
	case Coordinates:
		ok = c.shake.SolveCoords(pb, st.X, st.XPrime, invdt, st.V,
			lambda, st.DvDLambda, calcVir, vir)
	case Velocities:
		ok = c.shake.SolveVels(pb, st.X, st.XPrime, lambda, st.DvDLambda, calcVir, vir)
	default:
		panic(panicRelaxationKind)
	}
	if !ok {
		c.escalate(runcfg.LegacyRelaxation.String(), &c.warnBond, st.Step)
	}
	return ok
}

// applyTriplets fans the analytic triplet backend out over the worker pool.
// Coordinates stride the whole triplet list by thread index; projection
// kinds get explicit contiguous sub-ranges. Per-thread virial slots are
// reduced in thread-index order after the join, keeping the floating-point
// summation order deterministic for a fixed pool size.
func (c *Coordinator) applyTriplets(st *Step, pb *pbc.PBC, invdt float64,
	calcVir bool, vir *vec.Mat3) bool {
	nth := c.nthreads
	for i := 0; i < nth; i++ {
		c.virSlots[i] = vec.Mat3{}
		c.errSlots[i] = false
	}

	var wg sync.WaitGroup
	wg.Add(nth)
	for th := 0; th < nth; th++ {
		go func(th int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.fatal("constraint: triplet worker %d panicked: %v", th, r)
				}
			}()
			c.tripletWorker(st, pb, invdt, calcVir, th)
		}(th)
	}
	wg.Wait()

	if calcVir {
		for i := 0; i < nth; i++ {
			*vir = vir.Add(c.virSlots[i])
		}
	}

	if st.Kind != Coordinates {
		return true
	}
	errored := false
	for i := 0; i < nth; i++ {
		errored = errored || c.errSlots[i]
	}
	if errored {
		msg := fmt.Sprintf("step %d: a rigid triplet could not be solved; the system is likely blowing up", st.Step)
		c.log.Error(msg)
		fmt.Fprintln(os.Stderr, msg)
		c.escalate("settle", &c.warnSettle, st.Step)
	}
	return !errored
}

// tripletWorker is the per-thread body of the triplet parallel region.
func (c *Coordinator) tripletWorker(st *Step, pb *pbc.PBC, invdt float64,
	calcVir bool, th int) {
	switch st.Kind {
	case Coordinates:
		c.settle.Solve(c.nthreads, th, pb, st.X, st.XPrime, invdt, st.V,
			calcVir, &c.virSlots[th], &c.errSlots[th])
	case Velocities, Derivatives, Forces, ForceDisplacement:
		n := c.settle.Count()
		start := (n * th) / c.nthreads
		end := (n * (th + 1)) / c.nthreads
		virAtomEnd := 0
		if calcVir {
			virAtomEnd = len(st.X)
		}
		c.settle.Proj(start, end, pb, st.X, st.XPrime, st.MinProj,
			virAtomEnd, &c.virSlots[th])
	case FlexibleDerivative:
		// Rigid triplets have no flexible analogue.
	default:
		panic(panicBadQuantity)
	}
}

// virialFactor converts the raw backend accumulation into the physical
// virial. The velocity-Verlet family doubles the factor: only half the true
// displacement is constrained per solver call in that scheme.
func (c *Coordinator) virialFactor(kind QuantityKind, invdt float64) float64 {
	var fac float64
	switch kind {
	case Coordinates:
		fac = 0.5 * invdt * invdt
	case Velocities:
		fac = 0.5 * invdt
	case Forces, ForceDisplacement:
		fac = 0.5
	default:
		panic(panicVirialQuantity)
	}
	if c.params.Integrator.IsVelocityVerlet() {
		fac *= 2
	}
	return fac
}
