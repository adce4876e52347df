// Package shake implements the legacy relaxation bond-constraint backend:
// constraints are satisfied one at a time, sweeping the list until every
// squared length is within tolerance of its target, optionally with
// over-relaxation.
//
// Algorithm outline (coordinate solve):
//
//  1. For constraint i with previous-step vector r and proposed vector r',
//     the squared violation is r'·r' − d².
//  2. The scalar correction g = ω·(r'·r' − d²) / (2·(1/m_a + 1/m_b)·(r·r'))
//     moves both atoms along r, weighted by their inverse masses. ω is the
//     over-relaxation factor, 1 for the plain sweep.
//  3. Sweeps repeat until no constraint exceeds the tolerance. A sweep
//     budget bounds runaway geometries; exhausting it reports failure.
//
// A proposed bond rotated by 90° or more from its previous direction makes
// r·r' vanish and the correction undefined; the solve reports failure and
// leaves the remaining constraints untouched.
//
// The velocity solve removes the bond component of the relative velocity
// with the same sweep structure. Derivative and force projections are not
// supported by this backend.
//
// Flexible constraints (zero reference length in both end states) are
// excluded at construction; this backend cannot hold them.
//
// Errors (sentinel):
//
//	– ErrNoConstraints  the topology has no rigid distance constraints.
//
// Reference: Ryckaert, Ciccotti, Berendsen, J. Comput. Phys. 23 (1977).
package shake
