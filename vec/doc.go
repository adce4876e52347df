// Package vec provides the small fixed-size linear-algebra value types used
// throughout rigidmd: three-component vectors (Vec3) and 3×3 tensors (Mat3).
//
// Design:
//
//	– Value semantics: both types are plain arrays, cheap to copy, safe to
//	  share read-only across goroutines.
//	– Determinism: no hidden accumulation order; reductions over slices of
//	  Mat3 are performed by the caller in a documented order.
//	– No external dependencies: the constraint solvers touch these types in
//	  their innermost loops, so every operation is a direct expression over
//	  array elements with no bounds-checked indirection beyond the arrays
//	  themselves.
//
// The coordinate convention is X=0, Y=1, Z=2 (constants X, Y, Z).
package vec
