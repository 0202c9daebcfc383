// Package session assembles runnable sessions from validated configs. The
// orchestrator resolves every declarative knob (model kind, parser kind,
// memory backend, manipulator chain, metrics, turn order) into concrete
// components and hands the round loop to the environment.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"

	"github.com/roundtable-ai/roundtable/agent"
	"github.com/roundtable-ai/roundtable/config"
	"github.com/roundtable-ai/roundtable/core"
	"github.com/roundtable-ai/roundtable/environment"
	"github.com/roundtable-ai/roundtable/evaluation"
	"github.com/roundtable-ai/roundtable/logging"
	"github.com/roundtable-ai/roundtable/manipulator"
	"github.com/roundtable-ai/roundtable/memory"
	"github.com/roundtable-ai/roundtable/model"
	antmodel "github.com/roundtable-ai/roundtable/model/anthropic"
	oaimodel "github.com/roundtable-ai/roundtable/model/openai"
	"github.com/roundtable-ai/roundtable/parser"
	"github.com/roundtable-ai/roundtable/schema"
)

// ModelFactory resolves a model spec into a live model. Override it in tests
// or to add provider kinds beyond the built-in set.
type ModelFactory func(spec config.ModelSpec) (model.Model, error)

// MemoryFactory resolves a memory spec into a store for one agent.
type MemoryFactory func(sessionID, agentName string, spec config.MemorySpec) (core.MemoryStore, error)

// Options configures orchestrator construction.
type Options struct {
	// Logger receives session lifecycle events. Defaults to a no-op logger.
	Logger logging.Logger

	// ModelFactory overrides model resolution. Defaults to the built-in
	// openai/anthropic/static set.
	ModelFactory ModelFactory

	// MemoryFactory overrides memory resolution. Defaults to the built-in
	// simple/vector/redis set.
	MemoryFactory MemoryFactory

	// Manipulators is the manipulator registry used to resolve chain names.
	// Defaults to the built-in registry; register custom steps before
	// constructing the orchestrator.
	Manipulators *manipulator.Registry

	// Metrics is the metric registry used to resolve evaluation names.
	Metrics *evaluation.Registry
}

// Orchestrator owns one configured session from construction through its
// single run.
type Orchestrator struct {
	id     string
	name   string
	env    *environment.Environment
	logger logging.Logger
}

// New validates the config and builds all session components. Configuration
// problems surface here, before any model is invoked.
func New(cfg *config.SessionConfig, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		Manipulators: manipulator.NewRegistry(),
		Metrics:      evaluation.NewRegistry(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sessionID := core.NewID()
	opts.Logger = logging.WithSessionID(opts.Logger, sessionID)
	if opts.ModelFactory == nil {
		opts.ModelFactory = defaultModelFactory
	}
	if opts.MemoryFactory == nil {
		opts.MemoryFactory = defaultMemoryFactory
	}

	s, err := buildSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}

	runtimes := make([]*agent.Runtime, 0, len(cfg.Agents))
	for _, spec := range cfg.Agents {
		rt, err := buildRuntime(sessionID, spec, s, &opts)
		if err != nil {
			return nil, fmt.Errorf("session: agent %q: %w", spec.Name, err)
		}
		runtimes = append(runtimes, rt)
	}

	metrics, err := opts.Metrics.Resolve(cfg.Evaluation.Metrics)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	eval, err := evaluation.New(metrics, cfg.Evaluation.MinScore)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	order, err := buildOrder(cfg.Environment)
	if err != nil {
		return nil, err
	}

	env, err := environment.New(runtimes, eval, environment.Config{
		Task:              cfg.Task,
		Instructions:      s.Instructions(),
		MaxRounds:         cfg.Environment.MaxRounds,
		MaxRetries:        cfg.Environment.MaxRetries,
		RetryFeedback:     cfg.Environment.RetryFeedback,
		InvocationTimeout: cfg.Environment.InvocationTimeout.Std(),
		CompletionKeyword: cfg.Environment.CompletionKeyword,
		Order:             order,
	}, func(o *environment.Options) {
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		id:     sessionID,
		name:   cfg.Name,
		env:    env,
		logger: opts.Logger,
	}, nil
}

// ID returns the generated session identifier.
func (o *Orchestrator) ID() string { return o.id }

// Run drives the session to a terminal state. The result always carries the
// transcript accumulated so far; a non-nil error is a mid-run fatal condition
// and accompanies a partial result.
func (o *Orchestrator) Run(ctx context.Context) (*core.SessionResult, error) {
	o.logger.Info("session starting", "session_id", o.id, "name", o.name)
	start := time.Now()

	result, err := o.env.Run(ctx)
	if result != nil {
		result.SessionID = o.id
	}

	if err != nil {
		o.logger.Error("session failed", "session_id", o.id, "duration", time.Since(start), "error", err)
		return result, err
	}
	o.logger.Info("session finished",
		"session_id", o.id,
		"termination", result.Termination,
		"turns", len(result.Turns),
		"accepted", len(result.AcceptedTurns()),
		"duration", time.Since(start),
	)
	return result, nil
}

func buildSchema(fields []config.FieldSpec) (*schema.Schema, error) {
	out := make([]schema.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, schema.Field{
			Name:        f.Name,
			Type:        schema.FieldType(f.Type),
			Description: f.Description,
			Default:     f.Default,
		})
	}
	s, err := schema.New(out...)
	if err != nil {
		return nil, fmt.Errorf("session: schema: %w", err)
	}
	return s, nil
}

func buildRuntime(sessionID string, spec config.AgentSpec, s *schema.Schema, opts *Options) (*agent.Runtime, error) {
	m, err := opts.ModelFactory(spec.Model)
	if err != nil {
		return nil, err
	}

	var p parser.Parser
	switch spec.Parser {
	case config.ParserText:
		p, err = parser.NewTextParser(s)
		if err != nil {
			return nil, err
		}
	default:
		p = parser.NewJSONParser(s)
	}

	chain, err := opts.Manipulators.Resolve(spec.Manipulators)
	if err != nil {
		return nil, err
	}

	store, err := opts.MemoryFactory(sessionID, spec.Name, spec.Memory)
	if err != nil {
		return nil, err
	}

	return agent.NewRuntime(spec.Name, spec.Role, m, p, chain, store, func(o *agent.Options) {
		o.Logger = opts.Logger
	})
}

func buildOrder(spec config.EnvironmentSpec) (environment.Order, error) {
	switch spec.Order {
	case config.OrderRandom:
		return environment.NewRandomOrder(spec.OrderSeed), nil
	default:
		return environment.NewSequentialOrder(), nil
	}
}

func defaultModelFactory(spec config.ModelSpec) (model.Model, error) {
	switch spec.Kind {
	case config.ModelOpenAI:
		return oaimodel.NewModel(func(o *oaimodel.Options) {
			o.Model = spec.Name
		}), nil
	case config.ModelAnthropic:
		return antmodel.NewModel(func(o *antmodel.Options) {
			o.Model = anthropic.Model(spec.Name)
		}), nil
	case config.ModelStatic:
		return model.NewScriptedModel(spec.Name, spec.Responses...), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", spec.Kind)
	}
}

func defaultMemoryFactory(sessionID, agentName string, spec config.MemorySpec) (core.MemoryStore, error) {
	switch spec.Kind {
	case config.MemoryVector:
		var opts []memory.VectorOption
		if spec.TopK > 0 {
			opts = append(opts, memory.WithTopK(spec.TopK))
		}
		return memory.NewVectorStore(opts...), nil
	case config.MemoryRedis:
		client := redis.NewClient(&redis.Options{Addr: spec.Addr})
		var opts []memory.RedisOption
		if spec.RecallLimit > 0 {
			opts = append(opts, memory.WithRedisRecallLimit(spec.RecallLimit))
		}
		return memory.NewRedisStore(client, sessionID, agentName, opts...), nil
	default:
		var opts []memory.SimpleOption
		if spec.RecallLimit > 0 {
			opts = append(opts, memory.WithSimpleRecallLimit(spec.RecallLimit))
		}
		return memory.NewSimpleStore(opts...), nil
	}
}
