package constraint

import (
	"fmt"
	"os"

	"github.com/velisar/rigidmd/runcfg"
)

// consoleMargin is how close to the ceiling a failure must be before the
// notice is echoed to the interactive console in addition to the log.
const consoleMargin = 10

// escalate advances the warning state machine of one backend kind: count,
// log, echo near the ceiling, and go fatal the instant the ceiling is
// crossed. Counters are only touched on the calling thread, after any join.
func (c *Coordinator) escalate(alg string, counter *int, step int64) {
	*counter++
	c.log.Warn("constraint failure",
		"algorithm", alg, "step", step, "count", *counter)

	if c.maxWarnings == runcfg.WarningsDisabled {
		return
	}
	if *counter > c.maxWarnings {
		c.fatal("constraint: too many %s failures (%d); %s",
			alg, *counter, ceilingAdvice(alg))
		return
	}
	if c.maxWarnings-*counter < consoleMargin {
		fmt.Fprintf(os.Stderr, "step %d: %s constraint failure %d of at most %d\n",
			step, alg, *counter, c.maxWarnings)
	}
}

// ceilingAdvice tells the user how to proceed, per backend kind. The
// relaxation sweeps have no order/iteration knobs, so the remedy differs.
func ceilingAdvice(alg string) string {
	if alg == runcfg.LegacyRelaxation.String() {
		return "raise max_warnings (negative disables the ceiling) or reduce the time step"
	}
	return "raise max_warnings (negative disables the ceiling) or increase the projection order and iteration count"
}
