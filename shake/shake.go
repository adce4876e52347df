package shake

import (
	"errors"
	"math"

	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/topology"
	"github.com/velisar/rigidmd/vec"
)

// ErrNoConstraints indicates a topology without rigid distance constraints.
var ErrNoConstraints = errors.New("shake: topology has no rigid distance constraints")

// Defaults for the solver parameters.
const (
	// DefaultTolerance is the relative length tolerance of the sweep.
	DefaultTolerance = 1e-4
	// DefaultOmega is the plain (non-over-relaxed) sweep factor.
	DefaultOmega = 1.0
	// SOROmega is the factor used when successive over-relaxation is on.
	SOROmega = 1.25

	// maxSweeps bounds the relaxation on runaway geometries.
	maxSweeps = 1000
)

// Params configures the solver.
type Params struct {
	// Tolerance overrides DefaultTolerance when positive. A constraint is
	// converged when |ℓ² − d²| ≤ 2·Tolerance·d², which is Tolerance relative
	// on the length itself.
	Tolerance float64
	// Omega is the over-relaxation factor in (0, 2); zero selects
	// DefaultOmega.
	Omega float64
}

// Solver holds the flattened rigid-constraint data of one topology.
// Immutable after New.
type Solver struct {
	a1, a2 []int
	lenA   []float64
	lenB   []float64
	invm   []float64

	tol   float64
	omega float64
}

// New flattens the topology's rigid constraints into global atom numbering.
// Flexible constraints are skipped; a topology with only flexible
// constraints yields ErrNoConstraints.
func New(top *topology.Topology, p Params) (*Solver, error) {
	if p.Tolerance <= 0 {
		p.Tolerance = DefaultTolerance
	}
	if p.Omega <= 0 {
		p.Omega = DefaultOmega
	}

	s := &Solver{
		invm:  top.InvMasses(),
		tol:   p.Tolerance,
		omega: p.Omega,
	}

	offset := 0
	for _, b := range top.Blocks {
		mt := &top.Types[b.Type]
		for c := 0; c < b.Count; c++ {
			for _, cons := range [2][]topology.Constraint{mt.Constraints, mt.ConstraintsNoComm} {
				for _, con := range cons {
					if top.IsFlexible(con) {
						continue
					}
					cp := top.ConstraintParams[con.Param]
					s.a1 = append(s.a1, offset+con.A)
					s.a2 = append(s.a2, offset+con.B)
					s.lenA = append(s.lenA, cp.LengthA)
					s.lenB = append(s.lenB, cp.LengthB)
				}
			}
			offset += mt.NumAtoms()
		}
	}
	if len(s.a1) == 0 {
		return nil, ErrNoConstraints
	}
	return s, nil
}

// Count returns the number of rigid constraints handled by the solver.
func (s *Solver) Count() int { return len(s.a1) }

// length returns the interpolated reference length of constraint i.
func (s *Solver) length(i int, lambda float64) float64 {
	return (1-lambda)*s.lenA[i] + lambda*s.lenB[i]
}

// SolveCoords constrains the proposed positions xprime against the previous
// positions x, interpolating reference lengths at lambda. When v is non-nil
// the velocity correction dx·invdt is added. When dvdlambda is non-nil the
// multiplier-weighted length derivative is accumulated. Raw virial goes
// into vir when calcVir is set.
//
// Returns false when the sweep budget is exhausted or a bond rotated past
// 90° from its previous direction.
func (s *Solver) SolveCoords(p *pbc.PBC, x, xprime []vec.Vec3, invdt float64,
	v []vec.Vec3, lambda float64, dvdlambda *float64,
	calcVir bool, vir *vec.Mat3) bool {
	ncon := len(s.a1)

	rprev := make([]vec.Vec3, ncon)
	d2 := make([]float64, ncon)
	for i := 0; i < ncon; i++ {
		rprev[i] = p.Dx(x[s.a2[i]], x[s.a1[i]])
		d := s.length(i, lambda)
		d2[i] = d * d
	}

	mult := make([]float64, ncon)
	ok := false
	for sweep := 0; sweep < maxSweeps; sweep++ {
		done := true
		for i := 0; i < ncon; i++ {
			dx := p.Dx(xprime[s.a2[i]], xprime[s.a1[i]])
			diff := dx.Norm2() - d2[i]
			if math.Abs(diff) <= 2*s.tol*d2[i] {
				continue
			}
			rp := rprev[i].Dot(dx)
			if rp < d2[i]*1e-6 {
				// Bond rotated past 90°; no correction along the previous
				// direction can fix it.
				return false
			}
			im1, im2 := s.invm[s.a1[i]], s.invm[s.a2[i]]
			g := s.omega * diff / (2 * (im1 + im2) * rp)
			mult[i] += g

			c1 := rprev[i].Scale(g * im1)
			c2 := rprev[i].Scale(g * im2)
			xprime[s.a1[i]] = xprime[s.a1[i]].Add(c1)
			xprime[s.a2[i]] = xprime[s.a2[i]].Sub(c2)
			if v != nil {
				v[s.a1[i]] = v[s.a1[i]].Add(c1.Scale(invdt))
				v[s.a2[i]] = v[s.a2[i]].Sub(c2.Scale(invdt))
			}
			done = false
		}
		if done {
			ok = true
			break
		}
	}

	s.accumulate(rprev, mult, dvdlambda, calcVir, vir)
	return ok
}

// SolveVels removes the bond component of the relative velocities with the
// same sweeping relaxation, using the constrained positions x for the bond
// directions.
func (s *Solver) SolveVels(p *pbc.PBC, x []vec.Vec3, v []vec.Vec3,
	lambda float64, dvdlambda *float64, calcVir bool, vir *vec.Mat3) bool {
	ncon := len(s.a1)

	r := make([]vec.Vec3, ncon)
	d2 := make([]float64, ncon)
	for i := 0; i < ncon; i++ {
		r[i] = p.Dx(x[s.a2[i]], x[s.a1[i]])
		d := s.length(i, lambda)
		d2[i] = d * d
	}

	mult := make([]float64, ncon)
	ok := false
	for sweep := 0; sweep < maxSweeps; sweep++ {
		done := true
		for i := 0; i < ncon; i++ {
			rv := r[i].Dot(v[s.a2[i]].Sub(v[s.a1[i]]))
			if math.Abs(rv) <= s.tol*d2[i] {
				continue
			}
			im1, im2 := s.invm[s.a1[i]], s.invm[s.a2[i]]
			g := s.omega * rv / ((im1 + im2) * d2[i])
			mult[i] += g

			v[s.a1[i]] = v[s.a1[i]].Add(r[i].Scale(g * im1))
			v[s.a2[i]] = v[s.a2[i]].Sub(r[i].Scale(g * im2))
			done = false
		}
		if done {
			ok = true
			break
		}
	}

	s.accumulate(r, mult, dvdlambda, calcVir, vir)
	return ok
}

// accumulate folds the per-constraint total multipliers into the free-energy
// derivative and the raw virial. The multiplier comparable to a unit-vector
// correction is g·|r|, so both accumulations carry one factor of |r|.
func (s *Solver) accumulate(r []vec.Vec3, mult []float64,
	dvdlambda *float64, calcVir bool, vir *vec.Mat3) {
	for i := range mult {
		if mult[i] == 0 {
			continue
		}
		if dvdlambda != nil {
			*dvdlambda += mult[i] * r[i].Norm() * (s.lenB[i] - s.lenA[i])
		}
		if calcVir {
			vir.AddOuterScaled(-mult[i], r[i], r[i])
		}
	}
}
