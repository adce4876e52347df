// Package rigidmd enforces rigid geometric constraints (fixed bond lengths,
// rigid three-site molecules) on particle positions, velocities and forces
// during a molecular-dynamics run.
//
// 🚀 What is rigidmd?
//
//	A library that brings together, behind one coordinator:
//		• Iterative projection: coupled bond constraints via a truncated
//		  series expansion with rotation correction
//		• Legacy relaxation: per-constraint sweeps with optional
//		  over-relaxation
//		• Analytic triplets: the closed-form rigid three-site solve and
//		  its mass-weighted projection variant
//		• Topology services: connectivity indices, group-span detection,
//		  HCL loaders for topologies and run configurations
//
// ✨ Why choose rigidmd?
//
//   - Deterministic – per-thread accumulators reduced in fixed order, so a
//     given pool size always produces bit-identical virials
//   - Fail-safe – warning-ceiling escalation with step-stamped coordinate
//     dumps instead of silent corruption
//   - Explicit – the disabled coordinator is a nil value with safe methods,
//     never a scattered null check
//
// Everything is organized under flat subpackages:
//
//	vec/        — Vec3/Mat3 value types and the virial accumulation primitive
//	pbc/        — periodic boxes and minimum-image displacement
//	topology/   — molecule types, constraint tables, indices, HCL loader
//	runcfg/     — run configuration model + HCL loader
//	lincs/      — iterative-projection bond backend
//	shake/      — legacy relaxation bond backend
//	settle/     — analytic triplet backend
//	constraint/ — the coordinator: dispatch, fan-out, virial, escalation
//	diag/       — step-stamped coordinate dumps for failed steps
//
//	go get github.com/velisar/rigidmd
package rigidmd
