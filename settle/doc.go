// Package settle implements the analytic rigid-triplet solver: three
// particles (the canonical case is a water molecule) whose two equal apex
// bond lengths and base distance are held rigid by a closed-form solve
// instead of iterative projection.
//
// Algorithm outline (coordinate solve, per triplet):
//
//  1. Express the proposed (unconstrained) positions relative to their
//     center of mass and build an orthogonal frame from the previous,
//     already-rigid geometry: Z along the normal of the previous triangle,
//     X perpendicular to the apex direction.
//  2. In that frame the rigid body has three remaining degrees of freedom
//     (the angles φ, ψ, θ). φ and ψ follow directly from the Z components;
//     θ solves a quadratic mixing the previous in-plane coordinates.
//  3. Rotate the canonical rigid geometry (ra, rb, rc, derived from the bond
//     lengths and masses) back and add the center of mass.
//
// A triplet is unsolvable when any of the intermediate sines leaves [-1, 1]
// or the θ discriminant turns negative, the typical symptom of a numerical
// blow-up upstream. The solver then leaves the triplet untouched and sets
// the caller's error flag; it never aborts the remaining triplets.
//
// The projection variant (Proj) removes the constraint-violating component
// from a derivative quantity (velocities, forces, minimization
// displacements): it solves the 3×3 mass-weighted Lagrange system for the
// three bond directions and subtracts the projection.
//
// Thread parallelism: Solve processes the triplets whose index is congruent
// to thread modulo nthreads; Proj processes an explicit contiguous range.
// Both write into caller-provided virial and error slots, so concurrent
// workers never share state.
//
// Complexity: O(triplets) per call, constant work per triplet, no
// allocation after New.
//
// Errors (sentinel):
//
//	– ErrNoTriplets      the topology has no rigid triplets.
//	– ErrUnequalBaseMass the two base atoms of a triplet differ in mass
//	  (the closed form requires the symmetry).
//	– ErrBadGeometry     non-positive bond lengths, or a base distance not
//	  shorter than twice the apex bond.
package settle
