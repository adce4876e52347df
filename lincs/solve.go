package lincs

import (
	"math"

	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/vec"
)

// SolveCoords constrains the proposed positions xprime against the previous
// positions x, interpolating reference lengths at lambda. When v is non-nil
// the velocity correction dx·invdt is added. When dvdlambda is non-nil the
// multiplier-weighted length derivative is accumulated. Raw virial goes
// into vir when calcVir is set.
//
// Returns false when any constraint failed its rotation correction or the
// final relative deviation exceeds the warning threshold; the positions are
// still the best projection found.
func (s *Solver) SolveCoords(p *pbc.PBC, x, xprime []vec.Vec3, invdt float64,
	v []vec.Vec3, lambda float64, dvdlambda *float64,
	calcVir bool, vir *vec.Mat3) bool {
	ncon := len(s.a1)

	dirs := make([]vec.Vec3, ncon)
	targets := make([]float64, ncon)
	for i := 0; i < ncon; i++ {
		r := p.Dx(x[s.a2[i]], x[s.a1[i]])
		dirs[i] = r.Normalize()
		if s.flexible[i] {
			// Flexible constraints have no reference length; hold them at
			// their previous length during the coordinate solve.
			targets[i] = r.Norm()
		} else {
			targets[i] = s.length(i, lambda)
		}
	}
	dots := s.directionDots(dirs)

	rhs := make([]float64, ncon)
	tmp := make([]float64, ncon)
	sol := make([]float64, ncon)
	mult := make([]float64, ncon)

	for i := 0; i < ncon; i++ {
		dx := p.Dx(xprime[s.a2[i]], xprime[s.a1[i]])
		rhs[i] = s.sdiag[i] * (dirs[i].Dot(dx) - targets[i])
	}
	s.expand(dots, rhs, tmp, sol)
	s.applyCoords(dirs, sol, mult, xprime, v, invdt)

	ok := true
	for it := 0; it < s.iterations; it++ {
		for i := 0; i < ncon; i++ {
			len2 := p.Dx(xprime[s.a2[i]], xprime[s.a1[i]]).Norm2()
			d := targets[i]
			proj2 := 2*d*d - len2
			if proj2 < 0 {
				// Constraint rotated or stretched beyond any correction
				// target; count the call as failed and clamp.
				ok = false
				proj2 = 0
			}
			rhs[i] = s.sdiag[i] * (d - math.Sqrt(proj2))
		}
		s.expand(dots, rhs, tmp, sol)
		s.applyCoords(dirs, sol, mult, xprime, v, invdt)
	}

	for i := 0; i < ncon; i++ {
		d := targets[i]
		if d == 0 {
			continue
		}
		dev := (p.Dx(xprime[s.a2[i]], xprime[s.a1[i]]).Norm() - d) / d
		s.rmsdN++
		s.rmsdSum += dev * dev
		if math.Abs(dev) > s.warnDev {
			ok = false
		}
	}

	if dvdlambda != nil {
		for i := 0; i < ncon; i++ {
			*dvdlambda += mult[i] * (s.lenB[i] - s.lenA[i])
		}
	}
	if calcVir {
		for i := 0; i < ncon; i++ {
			r := p.Dx(x[s.a2[i]], x[s.a1[i]])
			vir.AddOuterScaled(-mult[i], r, dirs[i])
		}
	}
	return ok
}

// applyCoords applies one round of scaled corrections to xprime, tracks the
// per-constraint total multiplier, and mirrors the corrections into the
// velocities when requested.
func (s *Solver) applyCoords(dirs []vec.Vec3, sol, mult []float64,
	xprime, v []vec.Vec3, invdt float64) {
	for i := range sol {
		corr := s.sdiag[i] * sol[i]
		mult[i] += corr
		d1 := dirs[i].Scale(s.invm[s.a1[i]] * corr)
		d2 := dirs[i].Scale(s.invm[s.a2[i]] * corr)
		xprime[s.a1[i]] = xprime[s.a1[i]].Add(d1)
		xprime[s.a2[i]] = xprime[s.a2[i]].Sub(d2)
		if v != nil {
			v[s.a1[i]] = v[s.a1[i]].Add(d1.Scale(invdt))
			v[s.a2[i]] = v[s.a2[i]].Sub(d2.Scale(invdt))
		}
	}
}

// directionDots evaluates the per-coupling direction dot products for the
// current step, aligned with the CSR coupling list.
func (s *Solver) directionDots(dirs []vec.Vec3) []float64 {
	dots := make([]float64, len(s.ccCoupling))
	for i := 0; i < len(s.a1); i++ {
		for k := s.ccIndex[i]; k < s.ccIndex[i+1]; k++ {
			dots[k] = dirs[i].Dot(dirs[s.ccCoupling[k].other])
		}
	}
	return dots
}
