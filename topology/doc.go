// Package topology defines the static molecular topology consumed by the
// constraint machinery: molecule types with their bond-constraint and
// rigid-triplet (settle) interaction lists, molecule blocks with
// multiplicities, the two parameter tables, and atom-group metadata.
//
// On top of the data model the package provides the two pure derivations the
// constraint coordinator needs at initialization:
//
//   - Connectivity index: AtomToConstraints builds, per molecule type, a
//     CSR adjacency list mapping each atom to the constraints it takes part
//     in, and counts "flexible" constraints along the way. Constraint
//     indices run sequentially across the two constraint kinds (communicating
//     first, then no-communication), so one flat index space covers both.
//     AtomToSettles maps each atom to its rigid triplet, or -1.
//
//   - Group classification: InterGroupConstraints / InterGroupSettles report
//     whether any constraint or triplet spans two atom groups of its
//     molecule type. Group-spanning interactions need inter-domain
//     communication under domain decomposition and rule out the legacy
//     relaxation algorithm there.
//
// Flexible constraints:
//
//	A constraint is flexible iff its reference length is exactly zero in
//	both free-energy end states. Flexible constraints are counted always but
//	enter the adjacency only when the caller asks for dynamics-mode
//	inclusion (velocities/forces will be constrained too).
//
// Complexity:
//
//	– AtomToConstraints: O(atoms + constraints), two passes, no backtracking.
//	– AtomToSettles:     O(atoms + triplets).
//	– Classifiers:       O(atoms + interactions) per molecule block,
//	  short-circuiting on the first spanning interaction.
//
// Determinism: all derivations iterate the interaction lists in declaration
// order; re-running them on identical input yields identical output.
//
// Errors (sentinel):
//
//	– ErrBadParamIndex  constraint/settle references a missing table entry.
//	– ErrBadAtomIndex   interaction references an atom outside its molecule.
//	– ErrBadGroups      group boundaries are not a monotone cover of atoms.
//	– ErrBadBlock       block references a missing molecule type or has a
//	  non-positive multiplicity.
//	– ErrBadMass        an atom has a non-positive mass.
//	– ErrUnknownMolecule (HCL loader) a block names an undeclared molecule.
package topology
