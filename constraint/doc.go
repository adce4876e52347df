// Package constraint coordinates the rigid-constraint backends of one
// simulation: the bond-constraint solver (iterative projection or legacy
// relaxation, mutually exclusive) and the analytic triplet solver for rigid
// three-site molecules.
//
// The Coordinator is built once per run from the topology and the run
// configuration. A system with nothing to constrain yields the nil
// Coordinator, whose methods are all safe to call: the nil receiver is the
// explicit disabled state, and Apply on it is a successful no-op.
//
// Per step, Apply dispatches one quantity kind (coordinates, velocities,
// derivatives, forces, force displacements or flexible derivatives) to the
// configured backends, fans the triplet solve out over a fixed worker pool,
// reduces per-thread virial accumulators in thread-index order, and converts
// the raw accumulation into the physical virial with a kind-dependent
// factor.
//
// Failure policy: backend failures never propagate as errors. Each failure
// is logged with its step number, counted per backend kind, and triggers a
// diagnostics dump; crossing the configured warning ceiling terminates the
// run through the injectable fatal hook. Configuration errors are returned
// by New before any step runs. Logical misuse (constraining force
// displacements outside energy minimization, unknown quantity kinds) panics.
//
// Options:
//
//	WithLogger              structured log target (default slog.Default())
//	WithThreads             triplet worker-pool size (default GOMAXPROCS)
//	WithFatalFunc           fatal-escalation hook (default log + exit)
//	WithDiagnosticsSink     before/after coordinate dumps on failure
//	WithPuller              constraint-based pulling collaborator
//	WithEssentialDynamics   essential-dynamics collaborator
//	WithDomainComm          domain-decomposition coordinate exchange
//
// Errors (sentinel):
//
//	– ErrRelaxationSpansGroups  legacy relaxation with domain decomposition
//	                            and group-spanning constraints
//	– ErrRelaxationFlexible     legacy relaxation with flexible constraints
//	– ErrPressureCoupling       constraints with the MTTK barostat
package constraint
