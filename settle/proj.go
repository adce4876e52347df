package settle

import (
	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/vec"
)

// Proj removes the constraint-violating component from the derivative
// quantity der (velocities, forces, minimization displacements) for the
// triplets in [start, end). x supplies the current constraint directions.
//
// For every triplet the three bond constraints give a symmetric 3×3
// mass-weighted Lagrange system; its solution is subtracted from der. When
// minProj is non-nil the same correction is also subtracted there, so the
// caller can accumulate a minimal projection separately.
//
// Virial is accumulated for constraints whose apex atom lies below
// calcVirAtomEnd: the raw contribution is -λ·(r ⊗ e) per bond.
func (s *Settler) Proj(start, end int, p *pbc.PBC, x, der, minProj []vec.Vec3,
	calcVirAtomEnd int, vir *vec.Mat3) {
	for i := start; i < end; i++ {
		tr := s.triplets[i]
		g := &s.geoms[tr.geom]

		// Current bond vectors and unit directions.
		r01 := p.Dx(x[tr.o], x[tr.h1])
		r02 := p.Dx(x[tr.o], x[tr.h2])
		r12 := p.Dx(x[tr.h1], x[tr.h2])
		e01 := r01.Scale(1 / g.dOH)
		e02 := r02.Scale(1 / g.dOH)
		e12 := r12.Scale(1 / g.dHH)

		c12 := e01.Dot(e02)
		c13 := e01.Dot(e12)
		c23 := e02.Dot(e12)

		// Residuals: relative derivative along each bond.
		rhs := vec.Vec3{
			e01.Dot(der[tr.o].Sub(der[tr.h1])),
			e02.Dot(der[tr.o].Sub(der[tr.h2])),
			e12.Dot(der[tr.h1].Sub(der[tr.h2])),
		}

		m := vec.Mat3{
			{g.invMO + g.invMH, g.invMO * c12, -g.invMH * c13},
			{g.invMO * c12, g.invMO + g.invMH, g.invMH * c23},
			{-g.invMH * c13, g.invMH * c23, 2 * g.invMH},
		}
		lambda, ok := solve3(m, rhs)
		if !ok {
			continue
		}

		corrO := e01.Scale(lambda[0]).Add(e02.Scale(lambda[1])).Scale(g.invMO)
		corrB := e01.Scale(-lambda[0]).Add(e12.Scale(lambda[2])).Scale(g.invMH)
		corrC := e02.Scale(-lambda[1]).Sub(e12.Scale(lambda[2])).Scale(g.invMH)

		der[tr.o] = der[tr.o].Sub(corrO)
		der[tr.h1] = der[tr.h1].Sub(corrB)
		der[tr.h2] = der[tr.h2].Sub(corrC)
		if minProj != nil {
			minProj[tr.o] = minProj[tr.o].Sub(corrO)
			minProj[tr.h1] = minProj[tr.h1].Sub(corrB)
			minProj[tr.h2] = minProj[tr.h2].Sub(corrC)
		}

		if vir != nil && tr.o < calcVirAtomEnd {
			vir.AddOuterScaled(-lambda[0], r01, e01)
			vir.AddOuterScaled(-lambda[1], r02, e02)
			vir.AddOuterScaled(-lambda[2], r12, e12)
		}
	}
}

// solve3 solves the symmetric system m·x = b by cofactor expansion.
// ok is false when the matrix is numerically singular.
func solve3(m vec.Mat3, b vec.Vec3) (vec.Vec3, bool) {
	c00 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	c01 := m[1][2]*m[2][0] - m[1][0]*m[2][2]
	c02 := m[1][0]*m[2][1] - m[1][1]*m[2][0]
	det := m[0][0]*c00 + m[0][1]*c01 + m[0][2]*c02
	if det == 0 {
		return vec.Vec3{}, false
	}
	inv := 1 / det

	c10 := m[0][2]*m[2][1] - m[0][1]*m[2][2]
	c11 := m[0][0]*m[2][2] - m[0][2]*m[2][0]
	c12 := m[0][1]*m[2][0] - m[0][0]*m[2][1]
	c20 := m[0][1]*m[1][2] - m[0][2]*m[1][1]
	c21 := m[0][2]*m[1][0] - m[0][0]*m[1][2]
	c22 := m[0][0]*m[1][1] - m[0][1]*m[1][0]

	return vec.Vec3{
		inv * (c00*b[0] + c10*b[1] + c20*b[2]),
		inv * (c01*b[0] + c11*b[1] + c21*b[2]),
		inv * (c02*b[0] + c12*b[1] + c22*b[2]),
	}, true
}
