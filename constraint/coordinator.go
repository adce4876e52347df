package constraint

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/velisar/rigidmd/lincs"
	"github.com/velisar/rigidmd/runcfg"
	"github.com/velisar/rigidmd/settle"
	"github.com/velisar/rigidmd/shake"
	"github.com/velisar/rigidmd/topology"
	"github.com/velisar/rigidmd/vec"
)

// Coordinator owns the constraint backends, the per-thread scratch and the
// warning counters of one run. The nil *Coordinator is the disabled state;
// every method is nil-receiver-safe.
type Coordinator struct {
	top    *topology.Topology
	params runcfg.Params

	log   *slog.Logger
	fatal FatalFunc

	lincs  *lincs.Solver
	shake  *shake.Solver
	settle *settle.Settler

	// Per-molecule-type connectivity indices, in topology type order.
	at2con    []topology.AdjacencyList
	at2settle [][]int
	flexible  int

	masses []float64

	puller Puller
	ed     EssentialDynamics
	comm   DomainComm
	sink   DiagnosticsSink

	// spansGroups records whether any constraint or rigid triplet crosses an
	// atom-group boundary. Without a crossing the domain exchange has nothing
	// to move and the solvers never see a non-local atom.
	spansGroups bool

	maxWarnings int
	warnBond    int
	warnSettle  int

	// One virial slot and one failure flag per worker thread, reset at the
	// start of every triplet parallel region.
	nthreads int
	virSlots []vec.Mat3
	errSlots []bool
}

func defaultFatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Error(msg)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// New builds the Coordinator for one topology and run configuration.
//
// When the topology has no constraints and no rigid triplets, no
// constraint-based pulling is attached and essential dynamics is not
// requested, New returns (nil, nil): constraints are disabled, not broken.
// Configuration errors (illegal algorithm/topology/barostat combinations)
// are returned before any step runs.
func New(top *topology.Topology, params runcfg.Params, opts ...Option) (*Coordinator, error) {
	set := defaultSettings()
	for _, o := range opts {
		o(&set)
	}

	ncon := top.CountConstraints()
	nsettle := top.CountSettles()
	pullCon := params.Pull && set.puller != nil && set.puller.HasConstraint()
	if ncon == 0 && nsettle == 0 && !pullCon && set.ed == nil {
		return nil, nil
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.PressureCoupling == runcfg.MTTK {
		return nil, ErrPressureCoupling
	}

	c := &Coordinator{
		top:         top,
		params:      params,
		log:         set.log,
		fatal:       set.fatal,
		masses:      top.Masses(),
		puller:      set.puller,
		ed:          set.ed,
		comm:        set.comm,
		sink:        set.sink,
		maxWarnings: params.MaxWarnings,
		nthreads:    set.threads,
	}

	dynamics := params.Integrator.IsDynamics()
	c.at2con = make([]topology.AdjacencyList, len(top.Types))
	c.at2settle = make([][]int, len(top.Types))
	for mi := range top.Types {
		mt := &top.Types[mi]
		al, _, err := topology.AtomToConstraints(top, mt, 0, mt.NumAtoms(), dynamics)
		if err != nil {
			return nil, err
		}
		c.at2con[mi] = al
		c.at2settle[mi] = topology.AtomToSettles(mt)
	}

	c.spansGroups = topology.InterGroupConstraints(top) || topology.InterGroupSettles(top)

	c.flexible = topology.FlexibleConstraints(top)
	if c.flexible > 0 {
		if params.FlexibleStep == 0 {
			c.log.Warn("flexible constraints present but the flexible step size is zero; treating them as rigid at their current length",
				"count", c.flexible)
			c.flexible = 0
		} else {
			c.log.Info("topology has flexible constraints", "count", c.flexible)
		}
	}

	if ncon > 0 {
		switch params.Algorithm {
		case runcfg.IterativeProjection:
			s, err := lincs.New(top, lincs.Params{
				Order:      params.ProjectionOrder,
				Iterations: params.Iterations,
				Dynamics:   dynamics,
			})
			if err != nil {
				return nil, err
			}
			c.lincs = s
		case runcfg.LegacyRelaxation:
			if c.comm != nil && topology.InterGroupConstraints(top) {
				return nil, ErrRelaxationSpansGroups
			}
			if c.flexible > 0 {
				return nil, ErrRelaxationFlexible
			}
			omega := shake.DefaultOmega
			if params.RelaxSOR {
				omega = shake.SOROmega
			}
			s, err := shake.New(top, shake.Params{
				Tolerance: params.RelaxTolerance,
				Omega:     omega,
			})
			if err != nil {
				return nil, err
			}
			c.shake = s
		default:
			return nil, runcfg.ErrBadAlgorithm
		}
	}

	if nsettle > 0 {
		s, err := settle.New(top)
		if err != nil {
			return nil, err
		}
		c.settle = s
	}

	c.virSlots = make([]vec.Mat3, c.nthreads)
	c.errSlots = make([]bool, c.nthreads)

	c.log.Info("constraint coordinator ready",
		"bond_algorithm", params.Algorithm.String(),
		"constraints", ncon,
		"triplets", nsettle,
		"spans_groups", c.spansGroups,
		"threads", c.nthreads)
	return c, nil
}

// BindLocal rebinds the backends to a domain-local interaction set after a
// repartitioning. The connectivity indices and warning counters carry over;
// only the flattened solver state is rebuilt. A local set without
// constraints or triplets simply disables the matching backend.
func (c *Coordinator) BindLocal(local *topology.Topology) error {
	if c == nil {
		return nil
	}

	if c.lincs != nil || c.shake != nil {
		switch c.params.Algorithm {
		case runcfg.IterativeProjection:
			s, err := lincs.New(local, lincs.Params{
				Order:      c.params.ProjectionOrder,
				Iterations: c.params.Iterations,
				Dynamics:   c.params.Integrator.IsDynamics(),
			})
			switch {
			case errors.Is(err, lincs.ErrNoConstraints):
				c.lincs = nil
			case err != nil:
				return err
			default:
				c.lincs = s
			}
		case runcfg.LegacyRelaxation:
			omega := shake.DefaultOmega
			if c.params.RelaxSOR {
				omega = shake.SOROmega
			}
			s, err := shake.New(local, shake.Params{
				Tolerance: c.params.RelaxTolerance,
				Omega:     omega,
			})
			switch {
			case errors.Is(err, shake.ErrNoConstraints):
				c.shake = nil
			case err != nil:
				return err
			default:
				c.shake = s
			}
		}
	}

	if c.settle != nil {
		s, err := settle.New(local)
		switch {
		case errors.Is(err, settle.ErrNoTriplets):
			c.settle = nil
		case err != nil:
			return err
		default:
			c.settle = s
		}
	}

	c.masses = local.Masses()
	return nil
}

// FlexibleConstraints returns the topology-wide flexible-constraint count,
// zero when flexible constraining was demoted to rigid.
func (c *Coordinator) FlexibleConstraints() int {
	if c == nil {
		return 0
	}
	return c.flexible
}

// RMSD returns the accumulated root-mean-square relative constraint
// deviation of the iterative projection backend, zero for other setups.
func (c *Coordinator) RMSD() float64 {
	if c == nil || c.lincs == nil {
		return 0
	}
	return c.lincs.RMSD()
}

// RMSDData returns the raw residual accumulator of the iterative projection
// backend: sample count and sum of squared relative deviations.
func (c *Coordinator) RMSDData() (n, sumSquares float64) {
	if c == nil || c.lincs == nil {
		return 0, 0
	}
	return c.lincs.RMSDData()
}

// AtomToConstraints returns the per-molecule-type constraint adjacency, in
// topology type order, for domain-decomposition setup.
func (c *Coordinator) AtomToConstraints() []topology.AdjacencyList {
	if c == nil {
		return nil
	}
	return c.at2con
}

// AtomToSettles returns the per-molecule-type atom→triplet indices, in
// topology type order, for domain-decomposition setup.
func (c *Coordinator) AtomToSettles() [][]int {
	if c == nil {
		return nil
	}
	return c.at2settle
}
