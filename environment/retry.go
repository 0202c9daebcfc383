package environment

// turnPhase is the per-turn retry state machine:
//
//	Pending → Evaluating → {Accepted, Retrying, Failed}
//
// Retrying loops back to Evaluating for the next attempt. Accepted and
// Failed are terminal.
type turnPhase int

const (
	phasePending turnPhase = iota
	phaseEvaluating
	phaseAccepted
	phaseRetrying
	phaseFailed
)

// retryController decides whether a rejected attempt is retried, bounded by
// the configured maximum. Retries are strictly local to one agent's one
// scheduled turn.
type retryController struct {
	max      int
	consumed int
	phase    turnPhase
}

func newRetryController(maxRetries int) *retryController {
	return &retryController{max: maxRetries, phase: phasePending}
}

// begin marks the start of an attempt.
func (rc *retryController) begin() { rc.phase = phaseEvaluating }

// accept terminates the turn successfully.
func (rc *retryController) accept() { rc.phase = phaseAccepted }

// reject consumes one retry if budget remains, reporting whether another
// attempt may run. Exhausting the budget is terminal, never an unbounded loop.
func (rc *retryController) reject() bool {
	if rc.consumed < rc.max {
		rc.consumed++
		rc.phase = phaseRetrying
		return true
	}
	rc.phase = phaseFailed
	return false
}

// fail terminates the turn without touching the retry budget. Used for
// infrastructure-level conditions (memory unavailable) that are not an
// agent-quality problem.
func (rc *retryController) fail() { rc.phase = phaseFailed }

// retries reports the retries consumed so far.
func (rc *retryController) retries() int { return rc.consumed }
