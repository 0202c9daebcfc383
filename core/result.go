package core

// TerminationReason explains why a session stopped producing rounds.
type TerminationReason string

const (
	// TerminationRoundsExhausted is normal termination: every configured
	// round produced a finalized turn for every agent.
	TerminationRoundsExhausted TerminationReason = "rounds_exhausted"

	// TerminationExplicitCompletion means an accepted turn satisfied the
	// environment's completion condition before the round budget ran out.
	TerminationExplicitCompletion TerminationReason = "explicit_completion"

	// TerminationFatalError means the environment hit a non-recoverable
	// condition mid-run. The partial transcript is still returned.
	TerminationFatalError TerminationReason = "fatal_error"
)

// SessionResult is the complete outcome of one session run: the ordered,
// append-only transcript of finalized turns, the termination reason, and a
// reference (not a copy) to each agent's memory store as it stood when the
// session ended. Memory ownership stays with the agent runtime.
type SessionResult struct {
	SessionID   string                 `json:"session_id"`
	Turns       []Turn                 `json:"turns"`
	Termination TerminationReason      `json:"termination"`
	FatalReason string                 `json:"fatal_reason,omitempty"`
	Memories    map[string]MemoryStore `json:"-"`
}

// AcceptedTurns returns the accepted subset of the transcript in order.
func (r *SessionResult) AcceptedTurns() []Turn {
	var out []Turn
	for _, t := range r.Turns {
		if t.Accepted {
			out = append(out, t)
		}
	}
	return out
}
