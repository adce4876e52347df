package constraint_test

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velisar/rigidmd/constraint"
	"github.com/velisar/rigidmd/pbc"
	"github.com/velisar/rigidmd/runcfg"
	"github.com/velisar/rigidmd/topology"
	"github.com/velisar/rigidmd/vec"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() runcfg.Params {
	p := runcfg.Default()
	p.PBC = pbc.None
	return p
}

// waterPositions lays out n satisfied three-site waters, one per nm along X.
func waterPositions(n int) []vec.Vec3 {
	y := topology.WaterDHH / 2
	x := math.Sqrt(topology.WaterDOH*topology.WaterDOH - y*y)
	ps := make([]vec.Vec3, 0, 3*n)
	for i := 0; i < n; i++ {
		off := vec.Vec3{float64(i), 0, 0}
		ps = append(ps,
			off,
			off.Add(vec.Vec3{x, y, 0}),
			off.Add(vec.Vec3{x, -y, 0}),
		)
	}
	return ps
}

// collinearWater returns previous positions that make every triplet solve
// fail deterministically (degenerate previous geometry).
func collinearWater(n int) []vec.Vec3 {
	ps := make([]vec.Vec3, 0, 3*n)
	for i := 0; i < n; i++ {
		off := float64(i)
		ps = append(ps,
			vec.Vec3{off, 0, 0},
			vec.Vec3{off + 0.1, 0, 0},
			vec.Vec3{off + 0.2, 0, 0},
		)
	}
	return ps
}

func perturb(x []vec.Vec3) []vec.Vec3 {
	out := make([]vec.Vec3, len(x))
	for i := range x {
		out[i] = x[i].Add(vec.Vec3{
			0.0005 * float64(i%3),
			-0.0004 * float64(i%5),
			0.0003 * float64(i%7),
		})
	}
	return out
}

func clone(x []vec.Vec3) []vec.Vec3 {
	c := make([]vec.Vec3, len(x))
	copy(c, x)
	return c
}

type fatalRecorder struct{ calls []string }

func (f *fatalRecorder) fatal(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

type fakeComm struct {
	home      int
	needsComm bool
	moved     int
}

func (c *fakeComm) MoveX(_ pbc.Box, _, _ []vec.Vec3) { c.moved++ }
func (c *fakeComm) HomeAtoms() int                   { return c.home }
func (c *fakeComm) NeedsComm() bool                  { return c.needsComm }

type fakePuller struct {
	hasConstraint bool
	times         []float64
}

func (p *fakePuller) HasConstraint() bool { return p.hasConstraint }
func (p *fakePuller) Constrain(t, _ float64, _ []float64, _ pbc.Box,
	_, _, _ []vec.Vec3, _ *vec.Mat3) {
	p.times = append(p.times, t)
}

type fakeED struct{ steps []int64 }

func (e *fakeED) Apply(step int64, _, _ []vec.Vec3, _ pbc.Box) {
	e.steps = append(e.steps, step)
}

type fakeSink struct{ dumps []int64 }

func (s *fakeSink) Dump(step int64, _, _ []vec.Vec3, _ pbc.Box) {
	s.dumps = append(s.dumps, step)
}

// TestNewDisabled: nothing to constrain yields the nil coordinator, and all
// later calls on it are safe no-ops.
func TestNewDisabled(t *testing.T) {
	top := &topology.Topology{
		Types:  []topology.MoleculeType{{Name: "ION", Atoms: []topology.Atom{{Mass: 22.99}}}},
		Blocks: []topology.Block{{Type: 0, Count: 5}},
	}
	c, err := constraint.New(top, testParams(), constraint.WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Nil(t, c)

	x := make([]vec.Vec3, 5)
	assert.True(t, c.Apply(&constraint.Step{Kind: constraint.Coordinates, X: x, XPrime: clone(x)}))
	assert.Zero(t, c.FlexibleConstraints())
	assert.Zero(t, c.RMSD())
	assert.Nil(t, c.AtomToConstraints())
	assert.Nil(t, c.AtomToSettles())
	assert.NoError(t, c.BindLocal(top))
}

// TestNewPullOnlyEnabled: constraint-based pulling alone keeps the
// coordinator alive.
func TestNewPullOnlyEnabled(t *testing.T) {
	top := &topology.Topology{
		Types:  []topology.MoleculeType{{Name: "ION", Atoms: []topology.Atom{{Mass: 22.99}}}},
		Blocks: []topology.Block{{Type: 0, Count: 2}},
	}
	p := testParams()
	p.Pull = true
	pull := &fakePuller{hasConstraint: true}

	c, err := constraint.New(top, p,
		constraint.WithLogger(quietLogger()), constraint.WithPuller(pull))
	require.NoError(t, err)
	require.NotNil(t, c)

	x := make([]vec.Vec3, 2)
	require.True(t, c.Apply(&constraint.Step{Kind: constraint.Coordinates, X: x, XPrime: clone(x)}))
	assert.Len(t, pull.times, 1)
}

// TestNewConfigurationErrors covers the illegal combinations rejected before
// any step runs.
func TestNewConfigurationErrors(t *testing.T) {
	t.Run("mttk", func(t *testing.T) {
		p := testParams()
		p.PressureCoupling = runcfg.MTTK
		_, err := constraint.New(topology.WaterBox(1), p, constraint.WithLogger(quietLogger()))
		require.ErrorIs(t, err, constraint.ErrPressureCoupling)
	})

	t.Run("relaxation with flexible constraints", func(t *testing.T) {
		p := testParams()
		p.Algorithm = runcfg.LegacyRelaxation
		p.FlexibleStep = 0.01
		_, err := constraint.New(topology.Dumbbell(1, 0), p, constraint.WithLogger(quietLogger()))
		require.ErrorIs(t, err, constraint.ErrRelaxationFlexible)
	})

	t.Run("relaxation with group-spanning constraints under DD", func(t *testing.T) {
		p := testParams()
		p.Algorithm = runcfg.LegacyRelaxation
		_, err := constraint.New(topology.Chain(1, 4, 0.1), p,
			constraint.WithLogger(quietLogger()),
			constraint.WithDomainComm(&fakeComm{home: 4}))
		require.ErrorIs(t, err, constraint.ErrRelaxationSpansGroups)

		// The same topology is fine without domain decomposition.
		c, err := constraint.New(topology.Chain(1, 4, 0.1), p, constraint.WithLogger(quietLogger()))
		require.NoError(t, err)
		require.NotNil(t, c)
	})
}

// TestFlexibleConstraintDemotion: a zero flexible step warns and zeroes the
// count, a non-zero one keeps it.
func TestFlexibleConstraintDemotion(t *testing.T) {
	top := topology.Dumbbell(1, 0.1)
	top.ConstraintParams = append(top.ConstraintParams, topology.ConstraintParams{})
	top.Types[0].Constraints = append(top.Types[0].Constraints,
		topology.Constraint{Param: 1, A: 0, B: 1})

	p := testParams()
	p.FlexibleStep = 0.01
	c, err := constraint.New(top, p, constraint.WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, 1, c.FlexibleConstraints())

	p.FlexibleStep = 0
	c, err = constraint.New(top, p, constraint.WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, 0, c.FlexibleConstraints())
}

// TestApplyRoundTrip: an already satisfied system stays untouched and the
// virial is negligible.
func TestApplyRoundTrip(t *testing.T) {
	c, err := constraint.New(topology.WaterBox(3), testParams(),
		constraint.WithLogger(quietLogger()), constraint.WithThreads(2))
	require.NoError(t, err)

	x := waterPositions(3)
	xprime := clone(x)
	var vir vec.Mat3
	ok := c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, X: x, XPrime: xprime, Virial: &vir,
	})
	require.True(t, ok)
	for i := range xprime {
		for d := 0; d < 3; d++ {
			assert.InDelta(t, x[i][d], xprime[i][d], 1e-9)
		}
	}
	assert.Less(t, vir.MaxAbs(), 1e-6)
}

// TestApplyFatalOnCeiling: with ceiling N the run goes fatal exactly on the
// (N+1)-th failure, never earlier.
func TestApplyFatalOnCeiling(t *testing.T) {
	const ceiling = 3
	p := testParams()
	p.MaxWarnings = ceiling

	rec := &fatalRecorder{}
	sink := &fakeSink{}
	c, err := constraint.New(topology.WaterBox(1), p,
		constraint.WithLogger(quietLogger()),
		constraint.WithThreads(1),
		constraint.WithFatalFunc(rec.fatal),
		constraint.WithDiagnosticsSink(sink))
	require.NoError(t, err)

	x := collinearWater(1)
	for i := 1; i <= ceiling; i++ {
		ok := c.Apply(&constraint.Step{
			Kind: constraint.Coordinates, Step: int64(i), X: x, XPrime: clone(x),
		})
		assert.False(t, ok)
		assert.Empty(t, rec.calls, "failure %d must not be fatal yet", i)
	}

	ok := c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, Step: ceiling + 1, X: x, XPrime: clone(x),
	})
	assert.False(t, ok)
	require.Len(t, rec.calls, 1)
	assert.Contains(t, rec.calls[0], "too many")
	assert.Len(t, sink.dumps, ceiling+1, "every failing step dumps diagnostics")
}

// TestApplyCeilingDisabled: the disabled sentinel never goes fatal.
func TestApplyCeilingDisabled(t *testing.T) {
	p := testParams()
	p.MaxWarnings = runcfg.WarningsDisabled

	rec := &fatalRecorder{}
	c, err := constraint.New(topology.WaterBox(1), p,
		constraint.WithLogger(quietLogger()),
		constraint.WithThreads(1),
		constraint.WithFatalFunc(rec.fatal))
	require.NoError(t, err)

	x := collinearWater(1)
	for i := 0; i < 10000; i++ {
		c.Apply(&constraint.Step{
			Kind: constraint.Coordinates, Step: int64(i), X: x, XPrime: clone(x),
		})
	}
	assert.Empty(t, rec.calls)
}

// TestApplyForceDisplacementOutsideMinimization is a logic error and must
// panic before any backend runs.
func TestApplyForceDisplacementOutsideMinimization(t *testing.T) {
	c, err := constraint.New(topology.WaterBox(1), testParams(),
		constraint.WithLogger(quietLogger()), constraint.WithThreads(1))
	require.NoError(t, err)

	x := waterPositions(1)
	assert.Panics(t, func() {
		c.Apply(&constraint.Step{Kind: constraint.ForceDisplacement, X: x, XPrime: clone(x)})
	})
}

// TestApplyForceDisplacementMinimization is legal under an energy minimizer,
// including the zero-time-step case.
func TestApplyForceDisplacementMinimization(t *testing.T) {
	p := testParams()
	p.Integrator = runcfg.SteepestDescent
	p.TimeStep = 0

	c, err := constraint.New(topology.WaterBox(1), p,
		constraint.WithLogger(quietLogger()), constraint.WithThreads(1))
	require.NoError(t, err)

	x := waterPositions(1)
	der := []vec.Vec3{{0.1, 0, 0}, {-0.1, 0.2, 0}, {0, -0.2, 0.1}}
	var vir vec.Mat3
	ok := c.Apply(&constraint.Step{
		Kind: constraint.ForceDisplacement, X: x, XPrime: der, Virial: &vir,
	})
	require.True(t, ok)
	for i := range der {
		assert.True(t, der[i].IsFinite())
	}
}

// TestApplyThreadCountInvariance: different pool sizes agree on the reduced
// virial within summation-order tolerance and report identical failures.
func TestApplyThreadCountInvariance(t *testing.T) {
	x := waterPositions(8)
	xprime := perturb(x)

	run := func(threads int) (vec.Mat3, bool) {
		c, err := constraint.New(topology.WaterBox(8), testParams(),
			constraint.WithLogger(quietLogger()), constraint.WithThreads(threads))
		require.NoError(t, err)
		var vir vec.Mat3
		ok := c.Apply(&constraint.Step{
			Kind: constraint.Coordinates, X: x, XPrime: clone(xprime), Virial: &vir,
		})
		return vir, ok
	}

	vir1, ok1 := run(1)
	vir3, ok3 := run(3)
	assert.Equal(t, ok1, ok3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, vir1[i][j], vir3[i][j], 1e-9)
		}
	}

	// Failure flags OR identically across partitionings.
	bad := collinearWater(8)
	runBad := func(threads int) bool {
		c, err := constraint.New(topology.WaterBox(8), testParams(),
			constraint.WithLogger(quietLogger()), constraint.WithThreads(threads))
		require.NoError(t, err)
		return c.Apply(&constraint.Step{
			Kind: constraint.Coordinates, X: bad, XPrime: clone(bad),
		})
	}
	assert.Equal(t, runBad(1), runBad(4))
	assert.False(t, runBad(2))
}

// TestApplyVirialVelocityVerletDoubling: the velocity-Verlet family doubles
// the virial factor for the same raw accumulation.
func TestApplyVirialVelocityVerletDoubling(t *testing.T) {
	x := waterPositions(2)
	vels := []vec.Vec3{
		{0.3, -0.1, 0.2}, {-0.4, 0.2, 0.1}, {0.1, 0.5, -0.3},
		{-0.2, 0.1, 0.4}, {0.3, -0.3, 0.1}, {0.2, 0.2, -0.2},
	}

	run := func(integrator runcfg.Integrator) vec.Mat3 {
		p := testParams()
		p.Integrator = integrator
		c, err := constraint.New(topology.WaterBox(2), p,
			constraint.WithLogger(quietLogger()), constraint.WithThreads(1))
		require.NoError(t, err)
		var vir vec.Mat3
		require.True(t, c.Apply(&constraint.Step{
			Kind: constraint.Velocities, X: x, XPrime: clone(vels), Virial: &vir,
		}))
		return vir
	}

	lf := run(runcfg.LeapFrog)
	vv := run(runcfg.VelocityVerlet)
	require.Greater(t, lf.MaxAbs(), 0.0)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 2*lf[i][j], vv[i][j], 1e-12)
		}
	}
}

// TestApplyVirialStepScalingIndependence: the virial factor is built from the
// raw integrator time step, so scaling the solver's step leaves the reported
// virial unchanged.
func TestApplyVirialStepScalingIndependence(t *testing.T) {
	x := waterPositions(2)
	xprime := perturb(clone(x))

	run := func(scaling float64) vec.Mat3 {
		c, err := constraint.New(topology.WaterBox(2), testParams(),
			constraint.WithLogger(quietLogger()), constraint.WithThreads(1))
		require.NoError(t, err)
		var vir vec.Mat3
		require.True(t, c.Apply(&constraint.Step{
			Kind: constraint.Coordinates, StepScaling: scaling,
			X: x, XPrime: clone(xprime), Virial: &vir,
		}))
		return vir
	}

	plain := run(1)
	scaled := run(2)
	require.Greater(t, plain.MaxAbs(), 0.0)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, plain[i][j], scaled[i][j], 1e-12)
		}
	}
}

// TestApplyFreeEnergyLambdaOffset: deltaStep shifts the interpolation
// parameter before the backends run.
func TestApplyFreeEnergyLambdaOffset(t *testing.T) {
	top := topology.Dumbbell(1, 0.1)
	top.ConstraintParams[0].LengthB = 0.2

	p := testParams()
	p.FreeEnergy = true
	p.DeltaLambda = 0.25

	c, err := constraint.New(top, p, constraint.WithLogger(quietLogger()))
	require.NoError(t, err)

	// Positions satisfy the lambda=0.5 target; with deltaStep=2 the offset
	// lands exactly there and nothing moves.
	x := []vec.Vec3{{0, 0, 0}, {0.15, 0, 0}}
	xprime := clone(x)
	ok := c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, DeltaStep: 2, X: x, XPrime: xprime,
	})
	require.True(t, ok)
	assert.InDelta(t, 0.15, xprime[1].Sub(xprime[0]).Norm(), 1e-9)
}

// TestApplyPullHookTime: the pulling collaborator sees the corrected
// coordinates at t = initT + (step+deltaStep)·dt under dynamics.
func TestApplyPullHookTime(t *testing.T) {
	p := testParams()
	p.Pull = true
	p.InitTime = 1.0
	pull := &fakePuller{hasConstraint: true}

	c, err := constraint.New(topology.WaterBox(1), p,
		constraint.WithLogger(quietLogger()),
		constraint.WithThreads(1),
		constraint.WithPuller(pull))
	require.NoError(t, err)

	x := waterPositions(1)
	require.True(t, c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, Step: 10, DeltaStep: 2, X: x, XPrime: clone(x),
	}))
	require.Len(t, pull.times, 1)
	assert.InDelta(t, 1.0+12*p.TimeStep, pull.times[0], 1e-12)

	// Velocity constraining never reaches the pull hook.
	v := make([]vec.Vec3, len(x))
	require.True(t, c.Apply(&constraint.Step{
		Kind: constraint.Velocities, X: x, XPrime: v,
	}))
	assert.Len(t, pull.times, 1)
}

// TestApplyEssentialDynamicsHook fires for coordinates on sub-steps after
// the first only.
func TestApplyEssentialDynamicsHook(t *testing.T) {
	ed := &fakeED{}
	c, err := constraint.New(topology.WaterBox(1), testParams(),
		constraint.WithLogger(quietLogger()),
		constraint.WithThreads(1),
		constraint.WithEssentialDynamics(ed))
	require.NoError(t, err)

	x := waterPositions(1)
	require.True(t, c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, Step: 5, DeltaStep: 0, X: x, XPrime: clone(x),
	}))
	assert.Empty(t, ed.steps)

	require.True(t, c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, Step: 5, DeltaStep: 1, X: x, XPrime: clone(x),
	}))
	assert.Equal(t, []int64{5}, ed.steps)
}

// TestApplyDomainExchange: when triplets cross atom groups, boundary
// coordinates are exchanged and non-local velocity slots are zeroed before
// solving; group-internal topologies skip the exchange entirely.
func TestApplyDomainExchange(t *testing.T) {
	top := topology.WaterBox(2)
	top.Types[0].Groups = []int{0, 2, 3} // H2 in its own group

	comm := &fakeComm{home: 3}
	c, err := constraint.New(top, testParams(),
		constraint.WithLogger(quietLogger()),
		constraint.WithThreads(1),
		constraint.WithDomainComm(comm))
	require.NoError(t, err)

	x := waterPositions(2)
	v := make([]vec.Vec3, 6)
	for i := range v {
		v[i] = vec.Vec3{1, 1, 1}
	}
	require.True(t, c.Apply(&constraint.Step{
		Kind: constraint.Coordinates, X: x, XPrime: clone(x), V: v,
	}))
	assert.Equal(t, 1, comm.moved)
	for i := 0; i < 3; i++ {
		assert.NotEqual(t, vec.Vec3{}, v[i], "home atom %d keeps its velocity", i)
	}
	for i := 3; i < 6; i++ {
		assert.True(t, v[i].Norm() < 1e-9, "non-local atom %d is cleared", i)
	}

	t.Run("group-internal triplets", func(t *testing.T) {
		comm := &fakeComm{home: 3}
		c, err := constraint.New(topology.WaterBox(2), testParams(),
			constraint.WithLogger(quietLogger()),
			constraint.WithThreads(1),
			constraint.WithDomainComm(comm))
		require.NoError(t, err)

		x := waterPositions(2)
		require.True(t, c.Apply(&constraint.Step{
			Kind: constraint.Coordinates, X: x, XPrime: clone(x),
		}))
		assert.Equal(t, 0, comm.moved)
	})
}

// TestBindLocal rebinds the backends to a smaller local set.
func TestBindLocal(t *testing.T) {
	c, err := constraint.New(topology.WaterBox(4), testParams(),
		constraint.WithLogger(quietLogger()), constraint.WithThreads(1))
	require.NoError(t, err)

	require.NoError(t, c.BindLocal(topology.WaterBox(2)))

	x := waterPositions(2)
	xprime := perturb(x)
	ok := c.Apply(&constraint.Step{Kind: constraint.Coordinates, X: x, XPrime: xprime})
	require.True(t, ok)
	for i := 0; i < 2; i++ {
		o, h1, h2 := xprime[3*i], xprime[3*i+1], xprime[3*i+2]
		assert.InDelta(t, topology.WaterDOH, h1.Sub(o).Norm(), 1e-6)
		assert.InDelta(t, topology.WaterDOH, h2.Sub(o).Norm(), 1e-6)
		assert.InDelta(t, topology.WaterDHH, h2.Sub(h1).Norm(), 1e-6)
	}
}

// TestOptionPanics: nonsensical option values are programmer errors.
func TestOptionPanics(t *testing.T) {
	assert.Panics(t, func() { constraint.WithThreads(0) })
	assert.Panics(t, func() { constraint.WithLogger(nil) })
	assert.Panics(t, func() { constraint.WithFatalFunc(nil) })
	assert.Panics(t, func() { constraint.WithDiagnosticsSink(nil) })
}
