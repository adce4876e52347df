package topology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velisar/rigidmd/topology"
)

// ethanolLike builds a molecule type with both constraint kinds and one
// flexible constraint, for exercising the adjacency builder.
func ethanolLike() *topology.Topology {
	return &topology.Topology{
		Types: []topology.MoleculeType{{
			Name:  "ETH",
			Atoms: []topology.Atom{{Mass: 12}, {Mass: 1}, {Mass: 1}, {Mass: 16}},
			Constraints: []topology.Constraint{
				{Param: 0, A: 0, B: 1}, // con 0, rigid
				{Param: 1, A: 0, B: 2}, // con 1, flexible
			},
			ConstraintsNoComm: []topology.Constraint{
				{Param: 0, A: 2, B: 3}, // con 2, rigid, numbering continues
			},
		}},
		Blocks: []topology.Block{{Type: 0, Count: 5}},
		ConstraintParams: []topology.ConstraintParams{
			{LengthA: 0.1, LengthB: 0.1},
			{LengthA: 0, LengthB: 0}, // flexible: zero in both end states
		},
	}
}

// TestAtomToConstraintsDynamics includes flexible constraints and checks the
// flat numbering across the two constraint kinds.
func TestAtomToConstraintsDynamics(t *testing.T) {
	top := ethanolLike()
	mt := &top.Types[0]

	al, nflex, err := topology.AtomToConstraints(top, mt, 0, mt.NumAtoms(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, nflex)

	assert.Equal(t, []int{0, 1}, al.Of(0))
	assert.Equal(t, []int{0}, al.Of(1))
	// Atom 2 sees the flexible constraint 1 and the no-communication
	// constraint, which is numbered 2, continuing the flat index space.
	assert.Equal(t, []int{1, 2}, al.Of(2))
	assert.Equal(t, []int{2}, al.Of(3))
}

// TestAtomToConstraintsStatic omits flexible constraints from the adjacency
// but still counts them.
func TestAtomToConstraintsStatic(t *testing.T) {
	top := ethanolLike()
	mt := &top.Types[0]

	al, nflex, err := topology.AtomToConstraints(top, mt, 0, mt.NumAtoms(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, nflex, "flexible constraints are counted even when excluded")

	assert.Equal(t, []int{0}, al.Of(0), "flexible constraint 1 must be absent")
	assert.Empty(t, al.Of(2)[:0]) // silence linters on slicing
	assert.Equal(t, []int{2}, al.Of(2))
}

// TestAtomToConstraintsDeterminism re-runs the builder and requires
// byte-identical output.
func TestAtomToConstraintsDeterminism(t *testing.T) {
	top := ethanolLike()
	mt := &top.Types[0]

	a1, n1, err1 := topology.AtomToConstraints(top, mt, 0, mt.NumAtoms(), true)
	a2, n2, err2 := topology.AtomToConstraints(top, mt, 0, mt.NumAtoms(), true)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, n1, n2)
	assert.Equal(t, a1.Index, a2.Index)
	assert.Equal(t, a1.List, a2.List)
}

// TestAtomToConstraintsWindow checks the [start, start+natoms) restriction.
func TestAtomToConstraintsWindow(t *testing.T) {
	top := ethanolLike()
	mt := &top.Types[0]

	// A window not covering the constraint atoms is an error, not a silent
	// truncation.
	_, _, err := topology.AtomToConstraints(top, mt, 2, 2, true)
	require.ErrorIs(t, err, topology.ErrBadAtomIndex)
}

// TestAtomToSettles maps triplet members and leaves the rest at -1.
func TestAtomToSettles(t *testing.T) {
	top := topology.WaterBox(1)
	at2s := topology.AtomToSettles(&top.Types[0])
	assert.Equal(t, []int{0, 0, 0}, at2s)

	free := topology.MoleculeType{Atoms: []topology.Atom{{Mass: 1}, {Mass: 1}}}
	assert.Equal(t, []int{-1, -1}, topology.AtomToSettles(&free))
}

// TestFlexibleConstraintsWeighting weights per-type counts by block
// multiplicity.
func TestFlexibleConstraintsWeighting(t *testing.T) {
	top := ethanolLike()
	assert.Equal(t, 5, topology.FlexibleConstraints(top))

	top.Blocks = append(top.Blocks, topology.Block{Type: 0, Count: 2})
	assert.Equal(t, 7, topology.FlexibleConstraints(top))
}

// TestCounts covers the whole-topology tallies.
func TestCounts(t *testing.T) {
	water := topology.WaterBox(216)
	assert.Equal(t, 0, water.CountConstraints())
	assert.Equal(t, 216, water.CountSettles())
	assert.Equal(t, 648, water.NumAtoms())

	chain := topology.Chain(3, 4, 0.15)
	assert.Equal(t, 9, chain.CountConstraints())
	assert.Equal(t, 0, chain.CountSettles())
}

// TestMasses checks flattening order and inverse masses.
func TestMasses(t *testing.T) {
	top := topology.WaterBox(2)
	m := top.Masses()
	require.Len(t, m, 6)
	assert.Equal(t, topology.WaterMassO, m[0])
	assert.Equal(t, topology.WaterMassH, m[1])
	assert.Equal(t, topology.WaterMassO, m[3])

	inv := top.InvMasses()
	assert.InDelta(t, 1/topology.WaterMassO, inv[3], 1e-15)
}

// TestValidate exercises each sentinel.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*topology.Topology)
		want   error
	}{
		{"bad block type", func(tp *topology.Topology) { tp.Blocks[0].Type = 7 }, topology.ErrBadBlock},
		{"zero count", func(tp *topology.Topology) { tp.Blocks[0].Count = 0 }, topology.ErrBadBlock},
		{"bad mass", func(tp *topology.Topology) { tp.Types[0].Atoms[0].Mass = 0 }, topology.ErrBadMass},
		{"bad groups", func(tp *topology.Topology) { tp.Types[0].Groups = []int{1, 3} }, topology.ErrBadGroups},
		{"bad settle param", func(tp *topology.Topology) { tp.Types[0].Settles[0].Param = 3 }, topology.ErrBadParamIndex},
		{"bad settle atom", func(tp *topology.Topology) { tp.Types[0].Settles[0].H2 = 9 }, topology.ErrBadAtomIndex},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			top := topology.WaterBox(4)
			tc.mutate(top)
			require.ErrorIs(t, top.Validate(), tc.want)
		})
	}

	require.NoError(t, topology.WaterBox(4).Validate())
	require.NoError(t, topology.Chain(2, 5, 0.1).Validate())
}
