package topology

import "errors"

// Sentinel errors returned by topology validation and derivations.
var (
	// ErrBadParamIndex indicates a constraint or settle whose parameter index
	// is outside the corresponding parameter table.
	ErrBadParamIndex = errors.New("topology: parameter index out of range")

	// ErrBadAtomIndex indicates an interaction referencing an atom outside
	// its molecule type.
	ErrBadAtomIndex = errors.New("topology: atom index out of range")

	// ErrBadGroups indicates group boundaries that do not form a monotone
	// cover [0 .. natoms] of the molecule's atoms.
	ErrBadGroups = errors.New("topology: malformed group boundaries")

	// ErrBadBlock indicates a molecule block with an unknown type index or a
	// non-positive molecule count.
	ErrBadBlock = errors.New("topology: malformed molecule block")

	// ErrBadMass indicates an atom with a non-positive mass.
	ErrBadMass = errors.New("topology: atom mass must be positive")

	// ErrUnknownMolecule indicates an HCL block referencing a molecule name
	// that was never declared.
	ErrUnknownMolecule = errors.New("topology: unknown molecule name")
)

// Atom carries the per-atom data the constraint solvers need.
type Atom struct {
	Mass float64
}

// ConstraintParams holds the reference length of a distance constraint in
// the two free-energy end states. Both zero marks the constraint flexible.
type ConstraintParams struct {
	LengthA float64
	LengthB float64
}

// SettleParams holds the rigid-triplet geometry: the two equal bond lengths
// from the apex atom and the distance between the two base atoms.
type SettleParams struct {
	DOH float64
	DHH float64
}

// Constraint is a fixed-distance restraint between atoms A and B of a
// molecule type. Param indexes the ConstraintParams table.
type Constraint struct {
	Param int
	A, B  int
}

// Settle is a rigid triplet: apex atom O and base atoms H1, H2 of a molecule
// type. Param indexes the SettleParams table.
type Settle struct {
	Param     int
	O, H1, H2 int
}

// MoleculeType describes one molecule species.
//
// Groups holds group boundaries: group g covers atoms
// Groups[g] .. Groups[g+1]-1, with Groups[0] == 0 and the final boundary
// equal to len(Atoms). An empty Groups slice means one group per molecule.
//
// Constraints and ConstraintsNoComm are two physically distinct constraint
// kinds sharing one flat index space: the no-communication constraints are
// numbered after the communicating ones.
type MoleculeType struct {
	Name              string
	Atoms             []Atom
	Groups            []int
	Constraints       []Constraint
	ConstraintsNoComm []Constraint
	Settles           []Settle
}

// NumAtoms returns the number of atoms in the molecule type.
func (mt *MoleculeType) NumAtoms() int { return len(mt.Atoms) }

// groupBoundaries returns the effective group boundary slice, substituting
// the single-group cover when none is declared.
func (mt *MoleculeType) groupBoundaries() []int {
	if len(mt.Groups) == 0 {
		return []int{0, len(mt.Atoms)}
	}
	return mt.Groups
}

// Block instantiates Count copies of molecule type Type, laid out
// consecutively in the global atom numbering.
type Block struct {
	Type  int
	Count int
}

// Topology is the full static system description. It is immutable after
// construction; the constraint coordinator shares it read-only across
// threads and parallel domains.
type Topology struct {
	Types            []MoleculeType
	Blocks           []Block
	ConstraintParams []ConstraintParams
	SettleParams     []SettleParams
}

// Validate checks referential integrity of the whole topology. A topology
// that fails Validate must not be handed to the constraint coordinator.
func (t *Topology) Validate() error {
	for bi := range t.Blocks {
		b := t.Blocks[bi]
		if b.Type < 0 || b.Type >= len(t.Types) || b.Count <= 0 {
			return ErrBadBlock
		}
	}
	for mi := range t.Types {
		mt := &t.Types[mi]
		n := len(mt.Atoms)
		for ai := range mt.Atoms {
			if mt.Atoms[ai].Mass <= 0 {
				return ErrBadMass
			}
		}
		gb := mt.groupBoundaries()
		if gb[0] != 0 || gb[len(gb)-1] != n {
			return ErrBadGroups
		}
		for g := 1; g < len(gb); g++ {
			if gb[g] < gb[g-1] {
				return ErrBadGroups
			}
		}
		for _, con := range mt.Constraints {
			if err := t.checkConstraint(con, n); err != nil {
				return err
			}
		}
		for _, con := range mt.ConstraintsNoComm {
			if err := t.checkConstraint(con, n); err != nil {
				return err
			}
		}
		for _, s := range mt.Settles {
			if s.Param < 0 || s.Param >= len(t.SettleParams) {
				return ErrBadParamIndex
			}
			for _, a := range [3]int{s.O, s.H1, s.H2} {
				if a < 0 || a >= n {
					return ErrBadAtomIndex
				}
			}
		}
	}
	return nil
}

func (t *Topology) checkConstraint(con Constraint, natoms int) error {
	if con.Param < 0 || con.Param >= len(t.ConstraintParams) {
		return ErrBadParamIndex
	}
	if con.A < 0 || con.A >= natoms || con.B < 0 || con.B >= natoms {
		return ErrBadAtomIndex
	}
	return nil
}

// NumAtoms returns the total atom count across all blocks.
func (t *Topology) NumAtoms() int {
	n := 0
	for _, b := range t.Blocks {
		n += b.Count * t.Types[b.Type].NumAtoms()
	}
	return n
}

// CountConstraints returns the total number of distance constraints across
// all blocks, both kinds included.
func (t *Topology) CountConstraints() int {
	n := 0
	for _, b := range t.Blocks {
		mt := &t.Types[b.Type]
		n += b.Count * (len(mt.Constraints) + len(mt.ConstraintsNoComm))
	}
	return n
}

// CountSettles returns the total number of rigid triplets across all blocks.
func (t *Topology) CountSettles() int {
	n := 0
	for _, b := range t.Blocks {
		n += b.Count * len(t.Types[b.Type].Settles)
	}
	return n
}

// Masses returns the flattened per-atom mass array in global atom order.
func (t *Topology) Masses() []float64 {
	m := make([]float64, 0, t.NumAtoms())
	for _, b := range t.Blocks {
		mt := &t.Types[b.Type]
		for c := 0; c < b.Count; c++ {
			for ai := range mt.Atoms {
				m = append(m, mt.Atoms[ai].Mass)
			}
		}
	}
	return m
}

// InvMasses returns the flattened per-atom inverse-mass array.
func (t *Topology) InvMasses() []float64 {
	m := t.Masses()
	for i := range m {
		m[i] = 1 / m[i]
	}
	return m
}

// IsFlexible reports whether the constraint's reference length is exactly
// zero in both end states.
func (t *Topology) IsFlexible(con Constraint) bool {
	p := t.ConstraintParams[con.Param]
	return p.LengthA == 0 && p.LengthB == 0
}
