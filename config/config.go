// Package config declares the declarative session description and its
// validation rules. A session config names the task, the participating
// agents, the shared output schema, the evaluation gate, and the environment
// parameters; the session package turns a validated config into runnable
// components.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes Go duration strings like "30s" or "2m" from YAML.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Error reports an invalid or missing configuration value. Validation fails
// fast on the first problem found.
type Error struct {
	// Field is the offending config path, e.g. "agents[1].name".
	Field string

	// Reason describes why the value was rejected.
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Parser kinds.
const (
	ParserJSON = "json"
	ParserText = "text"
)

// Memory kinds.
const (
	MemorySimple = "simple"
	MemoryVector = "vector"
	MemoryRedis  = "redis"
)

// Model kinds.
const (
	ModelOpenAI    = "openai"
	ModelAnthropic = "anthropic"
	ModelStatic    = "static"
)

// Order kinds.
const (
	OrderSequential = "sequential"
	OrderRandom     = "random"
)

// SessionConfig is the root of a session description.
type SessionConfig struct {
	// Name labels the session in logs and results.
	Name string `yaml:"name"`

	// Description is free-form documentation; it does not affect execution.
	Description string `yaml:"description"`

	// Task is the shared task description given to every agent.
	Task string `yaml:"task"`

	// Agents lists the participants in declaration order.
	Agents []AgentSpec `yaml:"agents"`

	// Schema declares the structured output contract shared by all agents.
	Schema []FieldSpec `yaml:"schema"`

	// Evaluation configures the acceptance gate applied to every attempt.
	Evaluation EvaluationSpec `yaml:"evaluation"`

	// Environment configures the round loop.
	Environment EnvironmentSpec `yaml:"environment"`
}

// AgentSpec describes one participant.
type AgentSpec struct {
	// Name identifies the agent. Must be unique within the session.
	Name string `yaml:"name"`

	// Role is the agent's persona, prepended as the system prompt.
	Role string `yaml:"role"`

	// Model selects and configures the backing language model.
	Model ModelSpec `yaml:"model"`

	// Parser selects the output parser. Defaults to "json".
	Parser string `yaml:"parser"`

	// Memory configures the agent's private memory store.
	Memory MemorySpec `yaml:"memory"`

	// Manipulators names the post-processing steps applied to raw model
	// output before parsing, in order.
	Manipulators []string `yaml:"manipulators"`
}

// ModelSpec selects a model backend.
type ModelSpec struct {
	// Kind is one of "openai", "anthropic" or "static".
	Kind string `yaml:"kind"`

	// Name is the provider model identifier, e.g. "gpt-4o-mini".
	Name string `yaml:"name"`

	// Responses scripts a "static" model for offline runs and tests.
	Responses []string `yaml:"responses"`
}

// MemorySpec selects and tunes a memory backend.
type MemorySpec struct {
	// Kind is one of "simple", "vector" or "redis". Defaults to "simple".
	Kind string `yaml:"kind"`

	// RecallLimit caps entries returned by recall, when the backend supports
	// it. Zero keeps the backend default.
	RecallLimit int `yaml:"recall_limit"`

	// TopK caps similarity hits for the vector backend. Zero keeps the
	// backend default.
	TopK int `yaml:"top_k"`

	// Addr is the redis server address for the redis backend.
	Addr string `yaml:"addr"`
}

// FieldSpec declares one schema field.
type FieldSpec struct {
	// Name is the output key.
	Name string `yaml:"name"`

	// Type is one of "string", "float", "integer" or "boolean".
	Type string `yaml:"type"`

	// Description explains the field in the generated prompt instructions.
	Description string `yaml:"description"`

	// Default makes the field optional; absent fields take this value.
	Default any `yaml:"default"`
}

// EvaluationSpec configures the acceptance gate.
type EvaluationSpec struct {
	// Metrics names the scoring metrics. Must not be empty.
	Metrics []string `yaml:"metrics"`

	// MinScore is the acceptance threshold in [0, 1] applied to the
	// aggregate score.
	MinScore float64 `yaml:"min_score"`
}

// EnvironmentSpec configures the round loop.
type EnvironmentSpec struct {
	// MaxRounds bounds the session. Must be at least 1.
	MaxRounds int `yaml:"max_rounds"`

	// MaxRetries bounds re-attempts per turn. Zero disables retry.
	MaxRetries int `yaml:"max_retries"`

	// RetryFeedback threads rejection reasons into retry prompts.
	RetryFeedback bool `yaml:"retry_feedback"`

	// Order is the turn-taking policy, "sequential" or "random".
	// Defaults to "sequential".
	Order string `yaml:"order"`

	// OrderSeed seeds the random order policy for reproducible schedules.
	OrderSeed int64 `yaml:"order_seed"`

	// InvocationTimeout bounds each model call, e.g. "30s". Zero disables
	// the per-call bound.
	InvocationTimeout Duration `yaml:"invocation_timeout"`

	// CompletionKeyword ends the session early once an accepted output
	// contains it. Empty disables the check.
	CompletionKeyword string `yaml:"completion_keyword"`
}

// Load reads and validates a session config from a YAML file.
func Load(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML session config. Unknown keys are
// ignored; missing required keys surface as *Error.
func Parse(data []byte) (*SessionConfig, error) {
	var cfg SessionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config and fills defaults for optional fields. It is
// called by Parse; call it directly when constructing configs in code.
func (c *SessionConfig) Validate() error {
	if c.Task == "" {
		return &Error{Field: "task", Reason: "is required"}
	}
	if len(c.Agents) == 0 {
		return &Error{Field: "agents", Reason: "at least one agent is required"}
	}

	seen := make(map[string]struct{}, len(c.Agents))
	for i := range c.Agents {
		a := &c.Agents[i]
		path := fmt.Sprintf("agents[%d]", i)

		if a.Name == "" {
			return &Error{Field: path + ".name", Reason: "is required"}
		}
		if _, dup := seen[a.Name]; dup {
			return &Error{Field: path + ".name", Reason: fmt.Sprintf("duplicate agent name %q", a.Name)}
		}
		seen[a.Name] = struct{}{}

		switch a.Model.Kind {
		case ModelOpenAI, ModelAnthropic:
			if a.Model.Name == "" {
				return &Error{Field: path + ".model.name", Reason: "is required"}
			}
		case ModelStatic:
			if len(a.Model.Responses) == 0 {
				return &Error{Field: path + ".model.responses", Reason: "static model needs at least one response"}
			}
		case "":
			return &Error{Field: path + ".model.kind", Reason: "is required"}
		default:
			return &Error{Field: path + ".model.kind", Reason: fmt.Sprintf("unknown model kind %q", a.Model.Kind)}
		}

		if a.Parser == "" {
			a.Parser = ParserJSON
		}
		switch a.Parser {
		case ParserJSON, ParserText:
		default:
			return &Error{Field: path + ".parser", Reason: fmt.Sprintf("unknown parser %q", a.Parser)}
		}

		if a.Memory.Kind == "" {
			a.Memory.Kind = MemorySimple
		}
		switch a.Memory.Kind {
		case MemorySimple, MemoryVector:
		case MemoryRedis:
			if a.Memory.Addr == "" {
				return &Error{Field: path + ".memory.addr", Reason: "redis memory needs an address"}
			}
		default:
			return &Error{Field: path + ".memory.kind", Reason: fmt.Sprintf("unknown memory kind %q", a.Memory.Kind)}
		}
		if a.Memory.RecallLimit < 0 {
			return &Error{Field: path + ".memory.recall_limit", Reason: "must not be negative"}
		}
		if a.Memory.TopK < 0 {
			return &Error{Field: path + ".memory.top_k", Reason: "must not be negative"}
		}
	}

	if len(c.Schema) == 0 {
		return &Error{Field: "schema", Reason: "at least one field is required"}
	}
	for i, f := range c.Schema {
		if f.Name == "" {
			return &Error{Field: fmt.Sprintf("schema[%d].name", i), Reason: "is required"}
		}
		if f.Type == "" {
			return &Error{Field: fmt.Sprintf("schema[%d].type", i), Reason: "is required"}
		}
	}

	if len(c.Evaluation.Metrics) == 0 {
		return &Error{Field: "evaluation.metrics", Reason: "at least one metric is required"}
	}
	if c.Evaluation.MinScore < 0 || c.Evaluation.MinScore > 1 {
		return &Error{Field: "evaluation.min_score", Reason: fmt.Sprintf("must be in [0, 1], got %v", c.Evaluation.MinScore)}
	}

	env := &c.Environment
	if env.MaxRounds < 1 {
		return &Error{Field: "environment.max_rounds", Reason: "must be at least 1"}
	}
	if env.MaxRetries < 0 {
		return &Error{Field: "environment.max_retries", Reason: "must not be negative"}
	}
	if env.Order == "" {
		env.Order = OrderSequential
	}
	switch env.Order {
	case OrderSequential, OrderRandom:
	default:
		return &Error{Field: "environment.order", Reason: fmt.Sprintf("unknown order %q", env.Order)}
	}
	if env.InvocationTimeout < 0 {
		return &Error{Field: "environment.invocation_timeout", Reason: "must not be negative"}
	}

	return nil
}
