package settle

import (
	"errors"
	"math"

	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/topology"
	"github.com/velisar/rigidmd/vec"
)

// Sentinel errors returned by New.
var (
	// ErrNoTriplets indicates a topology without rigid triplets.
	ErrNoTriplets = errors.New("settle: topology has no rigid triplets")

	// ErrUnequalBaseMass indicates a triplet whose two base atoms differ in
	// mass; the analytic solve requires the symmetric case.
	ErrUnequalBaseMass = errors.New("settle: base atoms must have equal mass")

	// ErrBadGeometry indicates non-positive bond lengths or a base distance
	// that cannot close the triangle.
	ErrBadGeometry = errors.New("settle: invalid triplet geometry")
)

// geometry is the precomputed rigid-body data shared by all triplets of one
// (molecule type, settle entry) pair.
type geometry struct {
	mO, mH       float64
	invMO, invMH float64
	invTotal     float64
	dOH, dHH     float64
	// Canonical frame: ra is the apex→COM distance, rb the COM→base-midpoint
	// distance, rc half the base distance.
	ra, rb, rc float64
}

// triplet is one rigid triplet with global atom indices.
type triplet struct {
	o, h1, h2 int
	geom      int
}

// Settler solves all rigid triplets of one topology. Immutable after New;
// safe for concurrent Solve/Proj calls on disjoint thread slots.
type Settler struct {
	geoms    []geometry
	triplets []triplet
}

// New flattens the topology's rigid triplets into global atom numbering and
// precomputes the canonical geometry per settle entry.
func New(top *topology.Topology) (*Settler, error) {
	s := &Settler{}
	geomOf := make(map[[2]int]int) // (type, settle entry) → geometry index

	offset := 0
	for _, b := range top.Blocks {
		mt := &top.Types[b.Type]
		for c := 0; c < b.Count; c++ {
			for si, st := range mt.Settles {
				key := [2]int{b.Type, si}
				gi, ok := geomOf[key]
				if !ok {
					g, err := newGeometry(mt, st, top.SettleParams[st.Param])
					if err != nil {
						return nil, err
					}
					gi = len(s.geoms)
					s.geoms = append(s.geoms, g)
					geomOf[key] = gi
				}
				s.triplets = append(s.triplets, triplet{
					o:    offset + st.O,
					h1:   offset + st.H1,
					h2:   offset + st.H2,
					geom: gi,
				})
			}
			offset += mt.NumAtoms()
		}
	}
	if len(s.triplets) == 0 {
		return nil, ErrNoTriplets
	}
	return s, nil
}

func newGeometry(mt *topology.MoleculeType, st topology.Settle, p topology.SettleParams) (geometry, error) {
	mO := mt.Atoms[st.O].Mass
	mH1 := mt.Atoms[st.H1].Mass
	mH2 := mt.Atoms[st.H2].Mass
	if mH1 != mH2 {
		return geometry{}, ErrUnequalBaseMass
	}
	if p.DOH <= 0 || p.DHH <= 0 || p.DHH >= 2*p.DOH {
		return geometry{}, ErrBadGeometry
	}

	total := mO + 2*mH1
	rc := p.DHH / 2
	// Height of the apex above the base midpoint; the COM splits it by mass.
	h := math.Sqrt(p.DOH*p.DOH - rc*rc)
	ra := 2 * mH1 * h / total
	rb := h - ra

	return geometry{
		mO: mO, mH: mH1,
		invMO: 1 / mO, invMH: 1 / mH1,
		invTotal: 1 / total,
		dOH:      p.DOH, dHH: p.DHH,
		ra: ra, rb: rb, rc: rc,
	}, nil
}

// Count returns the number of rigid triplets.
func (s *Settler) Count() int { return len(s.triplets) }

// Solve constrains the proposed coordinates xprime of every triplet whose
// index is congruent to thread modulo nthreads, using the previous
// positions x as the rigid reference. When v is non-nil the constraint
// velocity correction dx·invdt is added to it. When calcVir is true the raw
// virial contribution -Σ m·(x ⊗ dx) is accumulated into vir.
//
// An unsolvable triplet sets *errored and is skipped; solving continues.
func (s *Settler) Solve(nthreads, thread int, p *pbc.PBC, x, xprime []vec.Vec3,
	invdt float64, v []vec.Vec3, calcVir bool, vir *vec.Mat3, errored *bool) {
	for i := thread; i < len(s.triplets); i += nthreads {
		tr := s.triplets[i]
		g := &s.geoms[tr.geom]
		dxO, dxB, dxC, ok := solveOne(g, p, x, xprime, tr)
		if !ok {
			*errored = true
			continue
		}

		xprime[tr.o] = xprime[tr.o].Add(dxO)
		xprime[tr.h1] = xprime[tr.h1].Add(dxB)
		xprime[tr.h2] = xprime[tr.h2].Add(dxC)

		if v != nil {
			v[tr.o] = v[tr.o].Add(dxO.Scale(invdt))
			v[tr.h1] = v[tr.h1].Add(dxB.Scale(invdt))
			v[tr.h2] = v[tr.h2].Add(dxC.Scale(invdt))
		}
		if calcVir {
			vir.AddOuterScaled(-g.mO, x[tr.o], dxO)
			vir.AddOuterScaled(-g.mH, x[tr.h1], dxB)
			vir.AddOuterScaled(-g.mH, x[tr.h2], dxC)
		}
	}
}

// solveOne computes the position corrections for one triplet, or ok=false
// when the closed form has no solution.
func solveOne(g *geometry, p *pbc.PBC, x, xprime []vec.Vec3, tr triplet) (dxO, dxB, dxC vec.Vec3, ok bool) {
	// Previous geometry relative to the apex (rigid by the invariant).
	xb0 := p.Dx(x[tr.h1], x[tr.o])
	xc0 := p.Dx(x[tr.h2], x[tr.o])

	// Proposed geometry relative to its center of mass.
	xb1 := p.Dx(xprime[tr.h1], xprime[tr.o])
	xc1 := p.Dx(xprime[tr.h2], xprime[tr.o])
	toCOM := xb1.Add(xc1).Scale(g.mH * g.invTotal)
	a1 := toCOM.Scale(-1)
	b1 := xb1.Add(a1)
	c1 := xc1.Add(a1)

	// Orthogonal frame: Z normal to the previous triangle, X ⟂ apex.
	aksZ := xb0.Cross(xc0)
	aksX := a1.Cross(aksZ)
	if aksZ.Norm2() == 0 || aksX.Norm2() == 0 {
		return dxO, dxB, dxC, false
	}
	aksY := aksZ.Cross(aksX)

	var trns vec.Mat3
	for i, axis := range [3]vec.Vec3{aksX.Normalize(), aksY.Normalize(), aksZ.Normalize()} {
		trns[i] = axis
	}

	b0d := trns.MulVec(xb0)
	c0d := trns.MulVec(xc0)
	a1d := trns.MulVec(a1)
	b1d := trns.MulVec(b1)
	c1d := trns.MulVec(c1)

	sinphi := a1d[vec.Z] / g.ra
	if sinphi < -1 || sinphi > 1 {
		return dxO, dxB, dxC, false
	}
	cosphi := math.Sqrt(1 - sinphi*sinphi)
	sinpsi := (b1d[vec.Z] - c1d[vec.Z]) / (2 * g.rc * cosphi)
	if cosphi == 0 || sinpsi < -1 || sinpsi > 1 {
		return dxO, dxB, dxC, false
	}
	cospsi := math.Sqrt(1 - sinpsi*sinpsi)

	ya2d := g.ra * cosphi
	xb2d := -g.rc * cospsi
	yb2d := -g.rb*cosphi - g.rc*sinpsi*sinphi
	yc2d := -g.rb*cosphi + g.rc*sinpsi*sinphi

	alpha := xb2d*(b0d[vec.X]-c0d[vec.X]) + b0d[vec.Y]*yb2d + c0d[vec.Y]*yc2d
	beta := xb2d*(c0d[vec.Y]-b0d[vec.Y]) + b0d[vec.X]*yb2d + c0d[vec.X]*yc2d
	gamma := b0d[vec.X]*b1d[vec.Y] - b1d[vec.X]*b0d[vec.Y] +
		c0d[vec.X]*c1d[vec.Y] - c1d[vec.X]*c0d[vec.Y]

	al2be2 := alpha*alpha + beta*beta
	disc := al2be2 - gamma*gamma
	if disc < 0 || al2be2 == 0 {
		return dxO, dxB, dxC, false
	}
	sinthe := (alpha*gamma - beta*math.Sqrt(disc)) / al2be2
	if sinthe < -1 || sinthe > 1 {
		return dxO, dxB, dxC, false
	}
	costhe := math.Sqrt(1 - sinthe*sinthe)

	a3d := vec.Vec3{-ya2d * sinthe, ya2d * costhe, a1d[vec.Z]}
	b3d := vec.Vec3{xb2d*costhe - yb2d*sinthe, xb2d*sinthe + yb2d*costhe, b1d[vec.Z]}
	c3d := vec.Vec3{-xb2d*costhe - yc2d*sinthe, -xb2d*sinthe + yc2d*costhe, c1d[vec.Z]}

	dxO = trns.TMulVec(a3d).Sub(a1)
	dxB = trns.TMulVec(b3d).Sub(b1)
	dxC = trns.TMulVec(c3d).Sub(c1)
	return dxO, dxB, dxC, true
}
