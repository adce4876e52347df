package vec

import "math"

// Axis indices for Vec3 and Mat3.
const (
	X = 0
	Y = 1
	Z = 2
)

// Vec3 is a three-component vector (position, velocity, force, ...).
type Vec3 [3]float64

// Mat3 is a 3×3 tensor, row-major. Used for constraint virial accumulation.
type Mat3 [3][3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[X] + w[X], v[Y] + w[Y], v[Z] + w[Z]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[X] - w[X], v[Y] - w[Y], v[Z] - w[Z]}
}

// Scale returns s·v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v[X], s * v[Y], s * v[Z]}
}

// Dot returns the scalar product v·w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[X]*w[X] + v[Y]*w[Y] + v[Z]*w[Z]
}

// Cross returns the vector product v×w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[Y]*w[Z] - v[Z]*w[Y],
		v[Z]*w[X] - v[X]*w[Z],
		v[X]*w[Y] - v[Y]*w[X],
	}
}

// Norm2 returns |v|².
func (v Vec3) Norm2() float64 {
	return v.Dot(v)
}

// Norm returns |v|.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Norm2())
}

// Normalize returns v/|v|. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// IsFinite reports whether all components are finite (no NaN, no ±Inf).
func (v Vec3) IsFinite() bool {
	for i := X; i <= Z; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

// Add returns m + n element-wise.
func (m Mat3) Add(n Mat3) Mat3 {
	var r Mat3
	for i := X; i <= Z; i++ {
		for j := X; j <= Z; j++ {
			r[i][j] = m[i][j] + n[i][j]
		}
	}
	return r
}

// Scale returns s·m element-wise.
func (m Mat3) Scale(s float64) Mat3 {
	var r Mat3
	for i := X; i <= Z; i++ {
		for j := X; j <= Z; j++ {
			r[i][j] = s * m[i][j]
		}
	}
	return r
}

// AddOuterScaled adds s·(v⊗w) to m in place: m[i][j] += s·v[i]·w[j].
// This is the single accumulation primitive of the virial loops.
func (m *Mat3) AddOuterScaled(s float64, v, w Vec3) {
	for i := X; i <= Z; i++ {
		for j := X; j <= Z; j++ {
			m[i][j] += s * v[i] * w[j]
		}
	}
}

// MulVec returns m·v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[X][X]*v[X] + m[X][Y]*v[Y] + m[X][Z]*v[Z],
		m[Y][X]*v[X] + m[Y][Y]*v[Y] + m[Y][Z]*v[Z],
		m[Z][X]*v[X] + m[Z][Y]*v[Y] + m[Z][Z]*v[Z],
	}
}

// TMulVec returns mᵀ·v.
func (m Mat3) TMulVec(v Vec3) Vec3 {
	return Vec3{
		m[X][X]*v[X] + m[Y][X]*v[Y] + m[Z][X]*v[Z],
		m[X][Y]*v[X] + m[Y][Y]*v[Y] + m[Z][Y]*v[Z],
		m[X][Z]*v[X] + m[Y][Z]*v[Y] + m[Z][Z]*v[Z],
	}
}

// MaxAbs returns the largest absolute element of m.
func (m Mat3) MaxAbs() float64 {
	var max float64
	for i := X; i <= Z; i++ {
		for j := X; j <= Z; j++ {
			if a := math.Abs(m[i][j]); a > max {
				max = a
			}
		}
	}
	return max
}
