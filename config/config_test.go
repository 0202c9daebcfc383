package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
name: brainstorm
task: collect product ideas
agents:
  - name: alice
    role: optimist
    model:
      kind: static
      responses:
        - '{"idea": "solar kettles"}'
  - name: bob
    role: skeptic
    model:
      kind: openai
      name: gpt-4o-mini
    parser: json
    memory:
      kind: vector
      top_k: 3
    manipulators: [normalize, strip_fences]
schema:
  - name: idea
    type: string
    description: one product idea
evaluation:
  metrics: [completeness]
  min_score: 0.5
environment:
  max_rounds: 3
  max_retries: 2
  retry_feedback: true
  invocation_timeout: 30s
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "brainstorm", cfg.Name)
	assert.Equal(t, "collect product ideas", cfg.Task)
	require.Len(t, cfg.Agents, 2)

	// Defaults are filled during validation.
	assert.Equal(t, ParserJSON, cfg.Agents[0].Parser)
	assert.Equal(t, MemorySimple, cfg.Agents[0].Memory.Kind)
	assert.Equal(t, OrderSequential, cfg.Environment.Order)

	assert.Equal(t, MemoryVector, cfg.Agents[1].Memory.Kind)
	assert.Equal(t, 3, cfg.Agents[1].Memory.TopK)
	assert.Equal(t, 30*time.Second, cfg.Environment.InvocationTimeout.Std())
	assert.True(t, cfg.Environment.RetryFeedback)
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(validYAML + "\nfuture_extension: true\n"))
	require.NoError(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "brainstorm", cfg.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	base := func() *SessionConfig {
		cfg, err := Parse([]byte(validYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*SessionConfig)
		field  string
	}{
		{
			name:   "missing task",
			mutate: func(c *SessionConfig) { c.Task = "" },
			field:  "task",
		},
		{
			name:   "no agents",
			mutate: func(c *SessionConfig) { c.Agents = nil },
			field:  "agents",
		},
		{
			name:   "duplicate agent names",
			mutate: func(c *SessionConfig) { c.Agents[1].Name = c.Agents[0].Name },
			field:  "agents[1].name",
		},
		{
			name:   "missing model kind",
			mutate: func(c *SessionConfig) { c.Agents[0].Model.Kind = "" },
			field:  "agents[0].model.kind",
		},
		{
			name:   "unknown model kind",
			mutate: func(c *SessionConfig) { c.Agents[0].Model.Kind = "oracle" },
			field:  "agents[0].model.kind",
		},
		{
			name:   "static model without responses",
			mutate: func(c *SessionConfig) { c.Agents[0].Model.Responses = nil },
			field:  "agents[0].model.responses",
		},
		{
			name:   "provider model without name",
			mutate: func(c *SessionConfig) { c.Agents[1].Model.Name = "" },
			field:  "agents[1].model.name",
		},
		{
			name:   "unknown parser",
			mutate: func(c *SessionConfig) { c.Agents[0].Parser = "xml" },
			field:  "agents[0].parser",
		},
		{
			name:   "unknown memory kind",
			mutate: func(c *SessionConfig) { c.Agents[0].Memory.Kind = "graph" },
			field:  "agents[0].memory.kind",
		},
		{
			name:   "redis memory without address",
			mutate: func(c *SessionConfig) { c.Agents[0].Memory.Kind = MemoryRedis },
			field:  "agents[0].memory.addr",
		},
		{
			name:   "empty schema",
			mutate: func(c *SessionConfig) { c.Schema = nil },
			field:  "schema",
		},
		{
			name:   "no metrics",
			mutate: func(c *SessionConfig) { c.Evaluation.Metrics = nil },
			field:  "evaluation.metrics",
		},
		{
			name:   "min score out of range",
			mutate: func(c *SessionConfig) { c.Evaluation.MinScore = 1.5 },
			field:  "evaluation.min_score",
		},
		{
			name:   "zero max rounds",
			mutate: func(c *SessionConfig) { c.Environment.MaxRounds = 0 },
			field:  "environment.max_rounds",
		},
		{
			name:   "negative max retries",
			mutate: func(c *SessionConfig) { c.Environment.MaxRetries = -1 },
			field:  "environment.max_retries",
		},
		{
			name:   "unknown order",
			mutate: func(c *SessionConfig) { c.Environment.Order = "roundrobin" },
			field:  "environment.order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("task: [unclosed"))
	require.Error(t, err)
	var cfgErr *Error
	assert.False(t, errors.As(err, &cfgErr), "yaml syntax errors are not validation errors")
}
