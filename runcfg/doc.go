// Package runcfg defines the run configuration consumed by the constraint
// coordinator: integrator kind, constraint algorithm and its iteration
// parameters, time step, free-energy schedule, pressure coupling, pulling
// flag, periodicity, and the warning-ceiling override.
//
// Configuration is loaded from HCL files (hashicorp/hcl v2, gohcl struct
// decoding), or constructed in Go starting from Default().
//
// Warning-ceiling semantics:
//
//	– absent from the file       → DefaultMaxWarnings (a large finite value)
//	– a non-negative integer N   → ceiling of N
//	– any negative integer       → WarningsDisabled: the ceiling never fires
//
// Errors (sentinel):
//
//	– ErrBadIntegrator        unknown integrator name.
//	– ErrBadAlgorithm         unknown constraint-algorithm name.
//	– ErrBadPressureCoupling  unknown pressure-coupling name.
//	– ErrBadPBC               unknown periodicity name.
//	– ErrBadTimeStep          negative time step.
//	– ErrBadIterations        non-positive iteration count or expansion order.
package runcfg
