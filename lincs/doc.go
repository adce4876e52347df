// Package lincs implements the iterative-projection bond-constraint
// backend: distance constraints are satisfied by projecting the proposed
// positions onto the constraint manifold, with the coupled-constraint
// matrix inverted approximately by a truncated series expansion.
//
// Algorithm outline (coordinate solve):
//
//  1. Build the unit direction e_i of every constraint from the previous
//     positions (which satisfy the constraints by the step invariant).
//  2. Compute the scaled violation rhs_i = S_i·(e_i·Δx_i − d_i) with
//     S_i = 1/√(1/m_a + 1/m_b).
//  3. Expand (I − A)⁻¹·rhs as Σ Aᵏ·rhs up to the configured projection
//     order, where A holds the couplings between constraints sharing an
//     atom: A_ij = −s_ij·(1/m_shared)·S_i·S_j·(e_i·e_j).
//  4. Apply the mass-weighted corrections along e_i.
//  5. Run the configured number of rotation-correction iterations: lengths
//     are re-measured and the target is adjusted to √(2d² − ℓ²), which
//     compensates the rotation of the constraint during the step. A length
//     beyond √2·d has no correction target; the constraint is counted as
//     failed for this call.
//
// The solver reports success=false when any constraint could not be
// corrected or the final relative deviation exceeds the warning threshold;
// the caller decides whether that is fatal (warning-ceiling policy).
//
// The projection variant (Proj) removes the constraint-space component from
// a derivative quantity (velocities, forces, minimization displacements)
// with the same series expansion. Force projection applies the raw
// multipliers without inverse-mass weighting. Flexible constraints take
// part only in derivative projections; in the coordinate solve their target
// is the current length, making them no-ops there.
//
// Residual tracking: every coordinate solve accumulates (ℓ−d)²/d² per
// constraint; RMSD() reports the root mean square over everything solved so
// far, mirroring the diagnostic output of the original method.
//
// Complexity: O(constraints · (order + iterations)) per call; all index
// structures are built once in New.
//
// Errors (sentinel):
//
//	– ErrNoConstraints  the topology has no distance constraints.
//
// Reference: Hess, Bekker, Berendsen, Fraaije, J. Comput. Chem. 18 (1997).
package lincs
