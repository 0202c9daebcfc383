// Package environment implements the turn-taking state machine that drives a
// multi-agent session. The environment owns the round loop, schedules agents
// through an Order policy, runs each scheduled turn under a bounded retry
// controller, and assembles the session transcript.
package environment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roundtable-ai/roundtable/agent"
	"github.com/roundtable-ai/roundtable/core"
	"github.com/roundtable-ai/roundtable/evaluation"
	"github.com/roundtable-ai/roundtable/logging"
)

// State captures the environment lifecycle: Idle before Run, Running during
// the round loop, then exactly one of Completed or Failed. A terminal
// environment is never reused.
type State string

// Environment lifecycle states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// FatalError aborts the session mid-run. The partial transcript accumulated
// so far is still returned alongside it.
type FatalError struct {
	// Reason is a short description of what killed the session.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("environment: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("environment: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *FatalError) Unwrap() error { return e.Err }

// Config holds the resolved run parameters for an environment.
type Config struct {
	// Task is the session-level task description shared by all agents.
	Task string

	// Instructions is the schema-derived output contract appended to every
	// agent prompt.
	Instructions string

	// MaxRounds bounds the round loop. Must be at least 1.
	MaxRounds int

	// MaxRetries bounds re-attempts per scheduled turn. Zero disables retry.
	MaxRetries int

	// RetryFeedback, when true, threads the previous attempt's rejection
	// reason into the retry prompt.
	RetryFeedback bool

	// InvocationTimeout bounds each model call. Zero means no per-call bound.
	InvocationTimeout time.Duration

	// CompletionKeyword, when non-empty, terminates the session after the
	// first round in which an accepted output contains it.
	CompletionKeyword string

	// Order is the turn-taking policy. Defaults to sequential.
	Order Order
}

// Options configures optional environment behavior.
type Options struct {
	// Logger receives turn lifecycle events. Defaults to a no-op logger.
	Logger logging.Logger
}

// Environment runs the round loop over a fixed set of agent runtimes.
// It is the sole mutator of session state during a run.
type Environment struct {
	cfg    Config
	agents []*agent.Runtime
	eval   *evaluation.Evaluator
	logger logging.Logger

	state State
	turns []core.Turn
}

// New creates an environment over the given runtimes and evaluator.
func New(agents []*agent.Runtime, eval *evaluation.Evaluator, cfg Config, optFns ...func(o *Options)) (*Environment, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(agents) == 0 {
		return nil, fmt.Errorf("environment: at least one agent is required")
	}
	if eval == nil {
		return nil, fmt.Errorf("environment: evaluator is required")
	}
	if cfg.MaxRounds < 1 {
		return nil, fmt.Errorf("environment: max rounds must be at least 1, got %d", cfg.MaxRounds)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("environment: max retries must not be negative, got %d", cfg.MaxRetries)
	}
	if cfg.Order == nil {
		cfg.Order = NewSequentialOrder()
	}

	return &Environment{
		cfg:    cfg,
		agents: agents,
		eval:   eval,
		logger: opts.Logger,
		state:  StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (e *Environment) State() State { return e.state }

// Run executes the round loop to completion. It always returns a result with
// the transcript accumulated so far; when the session is aborted mid-run the
// result carries the fatal reason and a FatalError is returned alongside it.
func (e *Environment) Run(ctx context.Context) (*core.SessionResult, error) {
	if e.state != StateIdle {
		return nil, fmt.Errorf("environment: already ran (state %q)", e.state)
	}
	e.state = StateRunning

	completed := false
	for round := 0; round < e.cfg.MaxRounds && !completed; round++ {
		if err := ctx.Err(); err != nil {
			return e.fail("session canceled at round boundary", err)
		}

		var shared []agent.Exchange
		for _, idx := range e.cfg.Order.Sequence(round, len(e.agents)) {
			rt := e.agents[idx]
			turn, err := e.runTurn(ctx, rt, round, shared)
			if err != nil {
				return e.fail(fmt.Sprintf("turn aborted for agent %q", rt.Name()), err)
			}
			e.turns = append(e.turns, turn)
			e.logger.Info("turn finished",
				"agent", turn.Agent,
				"round", turn.Round,
				"retries", turn.Retries,
				"accepted", turn.Accepted,
				"score", turn.Score,
			)

			if !turn.Accepted {
				continue
			}
			shared = append(shared, agent.Exchange{Agent: rt.Name(), Text: turn.Raw})
			if e.cfg.CompletionKeyword != "" && strings.Contains(turn.Raw, e.cfg.CompletionKeyword) {
				completed = true
			}
		}
	}

	e.state = StateCompleted
	termination := core.TerminationRoundsExhausted
	if completed {
		termination = core.TerminationExplicitCompletion
	}
	return e.result(termination, ""), nil
}

// runTurn executes one scheduled turn under the retry controller. The
// returned error is only ever fatal; ordinary attempt failures are folded
// into the turn record.
func (e *Environment) runTurn(ctx context.Context, rt *agent.Runtime, round int, shared []agent.Exchange) (core.Turn, error) {
	rc := newRetryController(e.cfg.MaxRetries)
	feedback := ""

	for {
		if err := ctx.Err(); err != nil {
			return core.Turn{}, &FatalError{Reason: "session canceled at retry boundary", Err: err}
		}
		rc.begin()

		raw, output, err := e.attempt(ctx, rt, agent.PromptContext{
			Task:         e.cfg.Task,
			Round:        round,
			Shared:       shared,
			Feedback:     feedback,
			Instructions: e.cfg.Instructions,
		})

		// Memory unavailability is an infrastructure failure, not an output
		// quality problem: the turn fails without consuming retry budget and
		// the session carries on.
		var memErr *core.MemoryUnavailableError
		if errors.As(err, &memErr) {
			rc.fail()
			return e.finalize(rt, round, raw, nil, nil, rc, err), nil
		}

		var scores map[string]float64
		if err == nil {
			var aggregate float64
			scores, aggregate, err = e.eval.Check(raw, output)
			if err == nil {
				rc.accept()
				if rememberErr := rt.Remember(ctx, round, raw); rememberErr != nil {
					rc.fail()
					return e.finalize(rt, round, raw, output, scores, rc, rememberErr), nil
				}
				turn := e.finalize(rt, round, raw, output, scores, rc, nil)
				turn.Score = aggregate
				return turn, nil
			}
		}

		if rc.reject() {
			e.logger.Debug("retrying turn", "agent", rt.Name(), "round", round, "attempt", rc.retries(), "reason", err)
			if e.cfg.RetryFeedback {
				feedback = err.Error()
			}
			continue
		}
		return e.finalize(rt, round, raw, output, scores, rc, err), nil
	}
}

// attempt runs one model call under the configured invocation timeout.
func (e *Environment) attempt(ctx context.Context, rt *agent.Runtime, pc agent.PromptContext) (string, map[string]any, error) {
	if e.cfg.InvocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.InvocationTimeout)
		defer cancel()
	}
	return rt.Attempt(ctx, pc)
}

// finalize assembles the immutable turn record.
func (e *Environment) finalize(rt *agent.Runtime, round int, raw string, output map[string]any, scores map[string]float64, rc *retryController, err error) core.Turn {
	turn := core.Turn{
		Agent:    rt.Name(),
		Round:    round,
		Raw:      raw,
		Output:   output,
		Scores:   scores,
		Accepted: rc.phase == phaseAccepted,
		Retries:  rc.retries(),
	}
	if err != nil {
		turn.Error = err.Error()
	}
	return turn
}

// fail transitions to the Failed terminal state, returning the partial
// transcript alongside the fatal error.
func (e *Environment) fail(reason string, err error) (*core.SessionResult, error) {
	e.state = StateFailed
	fatal := &FatalError{Reason: reason, Err: err}
	e.logger.Error("session failed", "reason", reason, "error", err)
	return e.result(core.TerminationFatalError, fatal.Error()), fatal
}

// result snapshots the transcript and per-agent memory stores.
func (e *Environment) result(termination core.TerminationReason, fatalReason string) *core.SessionResult {
	memories := make(map[string]core.MemoryStore, len(e.agents))
	for _, rt := range e.agents {
		memories[rt.Name()] = rt.Memory()
	}
	return &core.SessionResult{
		Turns:       e.turns,
		Termination: termination,
		FatalReason: fatalReason,
		Memories:    memories,
	}
}
