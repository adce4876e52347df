package lincs

import (
	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/vec"
)

// Proj removes the constraint-space component from the derivative quantity
// der (velocities, forces, minimization displacements), using the current
// positions x for the constraint directions.
//
// withInvMass selects the correction weighting: true for velocity-like
// quantities (corrections scaled by 1/m), false for forces (raw
// multipliers). flexibleOnly restricts the projection to flexible
// constraints, the FlexibleDerivative mode. When minProj is non-nil the
// corrections are mirrored into it.
func (s *Solver) Proj(p *pbc.PBC, x []vec.Vec3, der, minProj []vec.Vec3,
	withInvMass, flexibleOnly bool, calcVir bool, vir *vec.Mat3) {
	ncon := len(s.a1)

	dirs := make([]vec.Vec3, ncon)
	for i := 0; i < ncon; i++ {
		dirs[i] = p.Dx(x[s.a2[i]], x[s.a1[i]]).Normalize()
	}
	dots := s.directionDots(dirs)

	rhs := make([]float64, ncon)
	tmp := make([]float64, ncon)
	sol := make([]float64, ncon)
	for i := 0; i < ncon; i++ {
		rel := der[s.a2[i]].Sub(der[s.a1[i]])
		rhs[i] = s.sdiag[i] * dirs[i].Dot(rel)
	}
	s.expand(dots, rhs, tmp, sol)
	if flexibleOnly {
		// The coupled solve uses every constraint, but only the flexible
		// multipliers are applied.
		for i := 0; i < ncon; i++ {
			if !s.flexible[i] {
				sol[i] = 0
			}
		}
	}

	for i := 0; i < ncon; i++ {
		corr := s.sdiag[i] * sol[i]
		if corr == 0 {
			continue
		}
		w1, w2 := 1.0, 1.0
		if withInvMass {
			w1, w2 = s.invm[s.a1[i]], s.invm[s.a2[i]]
		}
		d1 := dirs[i].Scale(w1 * corr)
		d2 := dirs[i].Scale(w2 * corr)

		der[s.a1[i]] = der[s.a1[i]].Add(d1)
		der[s.a2[i]] = der[s.a2[i]].Sub(d2)
		if minProj != nil {
			minProj[s.a1[i]] = minProj[s.a1[i]].Add(d1)
			minProj[s.a2[i]] = minProj[s.a2[i]].Sub(d2)
		}
		if calcVir {
			r := p.Dx(x[s.a2[i]], x[s.a1[i]])
			vir.AddOuterScaled(-corr, r, dirs[i])
		}
	}
}
