package topology

// atomToGroup expands the group boundaries of a molecule type into a dense
// atom→group map.
func atomToGroup(mt *MoleculeType) []int {
	gb := mt.groupBoundaries()
	at2g := make([]int, len(mt.Atoms))
	for g := 0; g+1 < len(gb); g++ {
		for a := gb[g]; a < gb[g+1]; a++ {
			at2g[a] = g
		}
	}
	return at2g
}

// InterGroupConstraints reports whether any distance constraint in the
// topology spans two atom groups. Iterates blocks in declaration order and
// short-circuits on the first spanning constraint.
func InterGroupConstraints(t *Topology) bool {
	for _, b := range t.Blocks {
		mt := &t.Types[b.Type]
		if len(mt.Constraints)+len(mt.ConstraintsNoComm)+len(mt.Settles) == 0 {
			continue
		}
		at2g := atomToGroup(mt)
		for _, cons := range [2][]Constraint{mt.Constraints, mt.ConstraintsNoComm} {
			for _, con := range cons {
				if at2g[con.A] != at2g[con.B] {
					return true
				}
			}
		}
	}
	return false
}

// InterGroupSettles reports whether any rigid triplet in the topology spans
// two atom groups.
func InterGroupSettles(t *Topology) bool {
	for _, b := range t.Blocks {
		mt := &t.Types[b.Type]
		if len(mt.Settles) == 0 {
			continue
		}
		at2g := atomToGroup(mt)
		for _, s := range mt.Settles {
			if at2g[s.H1] != at2g[s.O] || at2g[s.H1] != at2g[s.H2] {
				return true
			}
		}
	}
	return false
}
