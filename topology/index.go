package topology

// AdjacencyList is a CSR-encoded atom→constraint index: the constraints of
// atom a are List[Index[a] : Index[a+1]]. Index has natoms+1 entries.
// Immutable after construction; shared read-only across threads.
type AdjacencyList struct {
	Index []int
	List  []int
}

// NumAtoms returns the number of atoms the adjacency covers.
func (al *AdjacencyList) NumAtoms() int { return len(al.Index) - 1 }

// Of returns the constraint indices of atom a.
func (al *AdjacencyList) Of(a int) []int {
	return al.List[al.Index[a]:al.Index[a+1]]
}

// AtomToConstraints builds the constraint adjacency of one molecule type,
// restricted to atoms in [start, start+natoms), and counts flexible
// constraints.
//
// Constraint numbering continues sequentially from the communicating
// constraints into the no-communication ones, producing one flat constraint
// index space. Flexible constraints are always counted but included in the
// adjacency only when dynamics is true (velocities/forces must be
// constrained too, so the flexible constraints stay visible).
//
// Two passes: count per-atom degrees, then fill. O(atoms + constraints).
func AtomToConstraints(t *Topology, mt *MoleculeType, start, natoms int, dynamics bool) (AdjacencyList, int, error) {
	count := make([]int, natoms)
	nflex := 0

	lists := [2][]Constraint{mt.Constraints, mt.ConstraintsNoComm}

	for _, cons := range lists {
		for _, con := range cons {
			if con.Param < 0 || con.Param >= len(t.ConstraintParams) {
				return AdjacencyList{}, 0, ErrBadParamIndex
			}
			flexible := t.IsFlexible(con)
			if flexible {
				nflex++
			}
			if dynamics || !flexible {
				for _, atom := range [2]int{con.A, con.B} {
					a := atom - start
					if a < 0 || a >= natoms {
						return AdjacencyList{}, 0, ErrBadAtomIndex
					}
					count[a]++
				}
			}
		}
	}

	al := AdjacencyList{Index: make([]int, natoms+1)}
	for a := 0; a < natoms; a++ {
		al.Index[a+1] = al.Index[a] + count[a]
		count[a] = 0
	}
	al.List = make([]int, al.Index[natoms])

	conTot := 0
	for _, cons := range lists {
		for _, con := range cons {
			if dynamics || !t.IsFlexible(con) {
				for _, atom := range [2]int{con.A, con.B} {
					a := atom - start
					al.List[al.Index[a]+count[a]] = conTot
					count[a]++
				}
			}
			conTot++
		}
	}

	return al, nflex, nil
}

// AtomToSettles maps every atom of the molecule type to the index of the
// rigid triplet it belongs to, or -1 when it belongs to none.
func AtomToSettles(mt *MoleculeType) []int {
	at2s := make([]int, len(mt.Atoms))
	for a := range at2s {
		at2s[a] = -1
	}
	for si, s := range mt.Settles {
		at2s[s.O] = si
		at2s[s.H1] = si
		at2s[s.H2] = si
	}
	return at2s
}

// FlexibleConstraints returns the topology-wide flexible-constraint count,
// weighting each molecule type by its block multiplicities.
func FlexibleConstraints(t *Topology) int {
	perType := make([]int, len(t.Types))
	for mi := range t.Types {
		mt := &t.Types[mi]
		for _, cons := range [2][]Constraint{mt.Constraints, mt.ConstraintsNoComm} {
			for _, con := range cons {
				if t.IsFlexible(con) {
					perType[mi]++
				}
			}
		}
	}
	n := 0
	for _, b := range t.Blocks {
		n += b.Count * perType[b.Type]
	}
	return n
}
