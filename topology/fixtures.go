package topology

// Canonical three-site water geometry and masses, used by the fixture
// constructors below and throughout the test suites. Lengths in nm, masses
// in atomic mass units.
const (
	WaterMassO = 15.9994
	WaterMassH = 1.008
	WaterDOH   = 0.09572
	WaterDHH   = 0.15139
)

// WaterBox returns a topology of n rigid three-site water molecules, each a
// single rigid triplet in its own atom group.
func WaterBox(n int) *Topology {
	return &Topology{
		Types: []MoleculeType{{
			Name: "SOL",
			Atoms: []Atom{
				{Mass: WaterMassO},
				{Mass: WaterMassH},
				{Mass: WaterMassH},
			},
			Groups:  []int{0, 3},
			Settles: []Settle{{Param: 0, O: 0, H1: 1, H2: 2}},
		}},
		Blocks:       []Block{{Type: 0, Count: n}},
		SettleParams: []SettleParams{{DOH: WaterDOH, DHH: WaterDHH}},
	}
}

// Chain returns a topology of nMol linear molecules of natoms unit-mass
// atoms, with a distance constraint of the given length between each
// consecutive pair. Each atom sits in its own group, so every constraint
// spans groups.
func Chain(nMol, natoms int, length float64) *Topology {
	atoms := make([]Atom, natoms)
	groups := make([]int, natoms+1)
	for a := 0; a < natoms; a++ {
		atoms[a] = Atom{Mass: 1}
		groups[a+1] = a + 1
	}
	cons := make([]Constraint, 0, natoms-1)
	for a := 0; a+1 < natoms; a++ {
		cons = append(cons, Constraint{Param: 0, A: a, B: a + 1})
	}
	return &Topology{
		Types: []MoleculeType{{
			Name:        "CHN",
			Atoms:       atoms,
			Groups:      groups,
			Constraints: cons,
		}},
		Blocks:           []Block{{Type: 0, Count: nMol}},
		ConstraintParams: []ConstraintParams{{LengthA: length, LengthB: length}},
	}
}

// Dumbbell returns a topology of nMol two-atom molecules joined by a single
// constraint of the given length, both atoms in one group.
func Dumbbell(nMol int, length float64) *Topology {
	return &Topology{
		Types: []MoleculeType{{
			Name:        "DMB",
			Atoms:       []Atom{{Mass: 1}, {Mass: 1}},
			Groups:      []int{0, 2},
			Constraints: []Constraint{{Param: 0, A: 0, B: 1}},
		}},
		Blocks:           []Block{{Type: 0, Count: nMol}},
		ConstraintParams: []ConstraintParams{{LengthA: length, LengthB: length}},
	}
}
