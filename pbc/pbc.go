package pbc

import (
	"errors"
	"math"

	"github.com/velisar/rigidmd/vec"
)

// Kind selects the global periodicity mode of a run.
type Kind int

const (
	// None disables periodic boundaries entirely.
	None Kind = iota
	// XYZ is full three-dimensional periodicity.
	XYZ
	// XY is slab periodicity: periodic in X and Y, open along Z.
	XY
)

// String returns the configuration-file spelling of k.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case XYZ:
		return "xyz"
	case XY:
		return "xy"
	default:
		return "unknown"
	}
}

// Sentinel errors returned by box construction.
var (
	// ErrBadBox indicates a box matrix with a non-positive diagonal element
	// or entries above the diagonal.
	ErrBadBox = errors.New("pbc: box must be lower-triangular with positive diagonal")

	// ErrBadKind indicates an unknown periodicity kind.
	ErrBadKind = errors.New("pbc: unknown periodicity kind")
)

// Box holds one box vector per row, lower-triangular.
type Box [3]vec.Vec3

// PBC is a resolved periodicity context. The zero value is not usable;
// construct with New. A nil *PBC means "positions are already whole".
type PBC struct {
	kind Kind
	box  Box
	// ndim is the number of periodic dimensions (3 for XYZ, 2 for XY).
	ndim int
}

// New resolves a periodicity context for the given kind and box.
// New(None, ...) returns (nil, nil): the nil context is the no-op.
func New(kind Kind, box Box) (*PBC, error) {
	if kind == None {
		return nil, nil
	}
	ndim := 0
	switch kind {
	case XYZ:
		ndim = 3
	case XY:
		ndim = 2
	default:
		return nil, ErrBadKind
	}
	for i := 0; i < ndim; i++ {
		if box[i][i] <= 0 {
			return nil, ErrBadBox
		}
		for j := i + 1; j <= vec.Z; j++ {
			if box[i][j] != 0 {
				return nil, ErrBadBox
			}
		}
	}
	return &PBC{kind: kind, box: box, ndim: ndim}, nil
}

// Kind returns the periodicity kind of the context.
func (p *PBC) Kind() Kind {
	if p == nil {
		return None
	}
	return p.kind
}

// Box returns the box the context was built from.
func (p *PBC) Box() Box {
	if p == nil {
		return Box{}
	}
	return p.box
}

// Dx returns the minimum-image displacement a-b. On a nil receiver it is
// plain subtraction. Shifts are applied row by row from Z down to X so that
// triclinic off-diagonal components are folded before the axes they lean on.
func (p *PBC) Dx(a, b vec.Vec3) vec.Vec3 {
	d := a.Sub(b)
	if p == nil {
		return d
	}
	for i := p.ndim - 1; i >= 0; i-- {
		shift := math.Round(d[i] / p.box[i][i])
		if shift != 0 {
			d = d.Sub(p.box[i].Scale(shift))
		}
	}
	return d
}
