// Package pbc implements the periodic-boundary context used by the
// constraint solvers: a box-shape descriptor plus the minimum-image
// displacement between two positions.
//
// A nil *PBC is the explicit "no periodicity" context: Dx on a nil receiver
// degrades to plain subtraction. The constraint coordinator selects the
// context once per call, so the solvers never branch on configuration;
// they only call Dx.
//
// Box convention:
//
//	– Box is a lower-triangular 3×3 matrix, one box vector per row
//	  (Box[0] along X, Box[1] in the XY plane, Box[2] free).
//	– Rectangular boxes therefore have only diagonal entries.
//	– The triclinic minimum-image search shifts along rows Z, Y, X in that
//	  order, which is exact for the compact boxes accepted by NewBox.
//
// Errors (sentinel):
//
//	– ErrBadBox   if a box has a non-positive diagonal or is not
//	  lower-triangular.
//	– ErrBadKind  if the periodicity kind is unknown.
package pbc
