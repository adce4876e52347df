package lincs

import (
	"errors"
	"math"

	"github.com/velisar/rigidmd/topology"
)

// ErrNoConstraints indicates a topology without distance constraints.
var ErrNoConstraints = errors.New("lincs: topology has no distance constraints")

// Defaults for the solver parameters.
const (
	// DefaultWarnDeviation is the relative length deviation above which a
	// solve is reported as failed.
	DefaultWarnDeviation = 0.1
)

// Params configures the solver.
type Params struct {
	// Order is the truncation order of the coupled-constraint expansion.
	Order int
	// Iterations is the number of rotation-correction iterations.
	Iterations int
	// Dynamics includes flexible constraints (needed when velocities and
	// forces are constrained too).
	Dynamics bool
	// WarnDeviation overrides DefaultWarnDeviation when positive.
	WarnDeviation float64
}

// coupling is one off-diagonal entry of the constraint-coupling matrix.
type coupling struct {
	other int
	// weight = -s_ij · (1/m_shared) · S_i · S_j, missing only the direction
	// dot product, which depends on the current step.
	weight float64
}

// Solver holds the flattened constraint data of one topology.
// Immutable after New except for the residual accumulator.
type Solver struct {
	a1, a2   []int
	lenA     []float64
	lenB     []float64
	flexible []bool
	sdiag    []float64
	invm     []float64

	// CSR coupling lists per constraint.
	ccIndex    []int
	ccCoupling []coupling

	order      int
	iterations int
	warnDev    float64

	// Residual accumulator: constraint count and Σ(ℓ-d)²/d².
	rmsdN   float64
	rmsdSum float64
}

// New flattens the topology's constraints into global atom numbering and
// precomputes the coupling structure.
func New(top *topology.Topology, p Params) (*Solver, error) {
	if p.Order <= 0 {
		p.Order = 4
	}
	if p.Iterations <= 0 {
		p.Iterations = 1
	}
	if p.WarnDeviation <= 0 {
		p.WarnDeviation = DefaultWarnDeviation
	}

	s := &Solver{
		invm:       top.InvMasses(),
		order:      p.Order,
		iterations: p.Iterations,
		warnDev:    p.WarnDeviation,
	}

	offset := 0
	for _, b := range top.Blocks {
		mt := &top.Types[b.Type]
		for c := 0; c < b.Count; c++ {
			for _, cons := range [2][]topology.Constraint{mt.Constraints, mt.ConstraintsNoComm} {
				for _, con := range cons {
					flex := top.IsFlexible(con)
					if flex && !p.Dynamics {
						continue
					}
					cp := top.ConstraintParams[con.Param]
					s.a1 = append(s.a1, offset+con.A)
					s.a2 = append(s.a2, offset+con.B)
					s.lenA = append(s.lenA, cp.LengthA)
					s.lenB = append(s.lenB, cp.LengthB)
					s.flexible = append(s.flexible, flex)
				}
			}
			offset += mt.NumAtoms()
		}
	}
	if len(s.a1) == 0 {
		return nil, ErrNoConstraints
	}

	ncon := len(s.a1)
	s.sdiag = make([]float64, ncon)
	for i := 0; i < ncon; i++ {
		s.sdiag[i] = 1 / math.Sqrt(s.invm[s.a1[i]]+s.invm[s.a2[i]])
	}

	s.buildCouplings(offset)
	return s, nil
}

// buildCouplings fills the CSR coupling lists from an atom→constraint map.
// The sign s_ij is the product of the gradient signs of the shared atom in
// the two constraints: +1 when it is the second atom, -1 when the first.
func (s *Solver) buildCouplings(natoms int) {
	type ref struct {
		con  int
		sign float64
	}
	at2con := make([][]ref, natoms)
	for i := range s.a1 {
		at2con[s.a1[i]] = append(at2con[s.a1[i]], ref{i, -1})
		at2con[s.a2[i]] = append(at2con[s.a2[i]], ref{i, +1})
	}

	ncon := len(s.a1)
	s.ccIndex = make([]int, ncon+1)
	for i := 0; i < ncon; i++ {
		s.ccIndex[i] = len(s.ccCoupling)
		for _, pair := range [2]struct {
			atom int
			sign float64
		}{{s.a1[i], -1}, {s.a2[i], +1}} {
			for _, r := range at2con[pair.atom] {
				if r.con == i {
					continue
				}
				s.ccCoupling = append(s.ccCoupling, coupling{
					other:  r.con,
					weight: -pair.sign * r.sign * s.invm[pair.atom] * s.sdiag[i] * s.sdiag[r.con],
				})
			}
		}
	}
	s.ccIndex[ncon] = len(s.ccCoupling)
}

// Count returns the number of constraints handled by the solver, flexible
// ones included when dynamics-mode inclusion was requested.
func (s *Solver) Count() int { return len(s.a1) }

// length returns the interpolated reference length of constraint i.
func (s *Solver) length(i int, lambda float64) float64 {
	return (1-lambda)*s.lenA[i] + lambda*s.lenB[i]
}

// RMSD returns the root-mean-square relative constraint deviation
// accumulated over all coordinate solves so far.
func (s *Solver) RMSD() float64 {
	if s.rmsdN == 0 {
		return 0
	}
	return math.Sqrt(s.rmsdSum / s.rmsdN)
}

// RMSDData returns the raw accumulator: sample count and sum of squared
// relative deviations.
func (s *Solver) RMSDData() (n, sumSquares float64) {
	return s.rmsdN, s.rmsdSum
}

// expand applies the truncated series (I-A)⁻¹ ≈ Σ Aᵏ to rhs, writing the
// accumulated solution into sol. dots holds the per-coupling direction dot
// products of the current step. rhs is consumed as scratch.
func (s *Solver) expand(dots []float64, rhs, tmp, sol []float64) {
	copy(sol, rhs)
	for o := 0; o < s.order; o++ {
		for i := range sol {
			acc := 0.0
			for k := s.ccIndex[i]; k < s.ccIndex[i+1]; k++ {
				acc += s.ccCoupling[k].weight * dots[k] * rhs[s.ccCoupling[k].other]
			}
			tmp[i] = acc
		}
		rhs, tmp = tmp, rhs
		for i := range sol {
			sol[i] += rhs[i]
		}
	}
}
