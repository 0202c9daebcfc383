// Package agent wraps one configured participant (role, memory store, model
// handle, output parser and manipulator chain) into a single callable
// turn-producer. A runtime is created when the session is built, owned by
// exactly one session, and discarded when the session ends.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roundtable-ai/roundtable/core"
	"github.com/roundtable-ai/roundtable/logging"
	"github.com/roundtable-ai/roundtable/manipulator"
	"github.com/roundtable-ai/roundtable/model"
	"github.com/roundtable-ai/roundtable/parser"
)

// Runtime binds an agent's collaborators together. All fields are immutable
// after construction; the memory store is the only stateful collaborator and
// it is exclusively owned by this runtime.
type Runtime struct {
	name   string
	role   string
	model  model.Model
	parser parser.Parser
	chain  *manipulator.Chain
	memory core.MemoryStore
	logger logging.Logger
}

// Options customize a Runtime.
type Options struct {
	Logger logging.Logger
}

// NewRuntime constructs a Runtime for one agent. The model, parser and
// memory store are required collaborators; a nil chain is replaced by an
// empty one.
func NewRuntime(
	name, role string,
	m model.Model,
	p parser.Parser,
	chain *manipulator.Chain,
	store core.MemoryStore,
	optFns ...func(o *Options),
) (*Runtime, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, fmt.Errorf("agent: name is required")
	}
	if m == nil {
		return nil, fmt.Errorf("agent %q: model is required", name)
	}
	if p == nil {
		return nil, fmt.Errorf("agent %q: parser is required", name)
	}
	if store == nil {
		return nil, fmt.Errorf("agent %q: memory store is required", name)
	}
	if chain == nil {
		chain = manipulator.NewChain()
	}

	return &Runtime{
		name:   name,
		role:   role,
		model:  m,
		parser: p,
		chain:  chain,
		memory: store,
		logger: opts.Logger,
	}, nil
}

// Name returns the agent's unique session-scoped name.
func (r *Runtime) Name() string { return r.name }

// Memory returns the runtime's memory store. The session result references
// (not copies) this store.
func (r *Runtime) Memory() core.MemoryStore { return r.memory }

// Attempt runs one full output-production attempt: recall memory, assemble
// the prompt, invoke the model, apply the manipulator chain in declared
// order, then parse against the schema.
//
// The post-manipulation text is returned even when parsing fails so the
// transcript can carry the offending raw output. Error classification is the
// caller's concern: recall failures surface as *core.MemoryUnavailableError,
// model failures as *model.InvocationError, chain failures as
// *manipulator.StepError and parse failures as *parser.ParseError.
func (r *Runtime) Attempt(ctx context.Context, pc PromptContext) (string, map[string]any, error) {
	recalled, err := r.memory.Recall(ctx, pc.Task)
	if err != nil {
		return "", nil, err
	}

	prompt := buildPrompt(pc, recalled)

	start := time.Now()
	text, err := r.model.Complete(ctx, model.Request{System: r.role, Prompt: prompt})
	if err != nil {
		r.logger.Warn("model call failed", "agent", r.name, "round", pc.Round, "error", err, "duration", time.Since(start))
		return "", nil, err
	}
	r.logger.Debug("model call completed", "agent", r.name, "round", pc.Round, "duration", time.Since(start))

	text, err = r.chain.Apply(ctx, text, &manipulator.Context{Agent: r.name, Round: pc.Round, Model: r.model})
	if err != nil {
		return "", nil, err
	}

	output, err := r.parser.Parse(text)
	if err != nil {
		return text, nil, err
	}
	return text, output, nil
}

// Remember records an accepted turn in the agent's memory. Any store failure
// is normalized to *core.MemoryUnavailableError so custom backends returning
// plain errors get the infrastructure-level treatment too.
func (r *Runtime) Remember(ctx context.Context, round int, content string) error {
	err := r.memory.Remember(ctx, core.Entry{Round: round, Content: content})
	if err == nil {
		return nil
	}
	var mu *core.MemoryUnavailableError
	if errors.As(err, &mu) {
		return err
	}
	return &core.MemoryUnavailableError{Op: "remember", Err: err}
}
