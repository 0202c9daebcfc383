// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing session configs and scripted agents. These
// helpers are not intended for production usage.
package testutil

import "github.com/roundtable-ai/roundtable/config"

// BrainstormConfig builds a two-agent brainstorming session driven by
// scripted models. Each agents' responses are replayed in order; the last
// response repeats once exhausted. The config passes validation as returned
// and can be mutated by tests to provoke specific failures.
func BrainstormConfig(aliceResponses, bobResponses []string) *config.SessionConfig {
	return &config.SessionConfig{
		Name: "brainstorm",
		Task: "collect product ideas",
		Agents: []config.AgentSpec{
			{
				Name: "alice",
				Role: "optimistic inventor",
				Model: config.ModelSpec{
					Kind:      config.ModelStatic,
					Name:      "scripted-alice",
					Responses: aliceResponses,
				},
			},
			{
				Name: "bob",
				Role: "pragmatic engineer",
				Model: config.ModelSpec{
					Kind:      config.ModelStatic,
					Name:      "scripted-bob",
					Responses: bobResponses,
				},
			},
		},
		Schema: []config.FieldSpec{
			{Name: "idea", Type: "string", Description: "one product idea"},
		},
		Evaluation: config.EvaluationSpec{
			Metrics:  []string{"completeness"},
			MinScore: 0.5,
		},
		Environment: config.EnvironmentSpec{
			MaxRounds:  2,
			MaxRetries: 1,
		},
	}
}

// SoloConfig builds a single-agent session with the given scripted responses
// and round/retry budget. Useful for retry and termination tests.
func SoloConfig(responses []string, maxRounds, maxRetries int) *config.SessionConfig {
	return &config.SessionConfig{
		Name: "solo",
		Task: "answer the question",
		Agents: []config.AgentSpec{
			{
				Name: "solo",
				Role: "assistant",
				Model: config.ModelSpec{
					Kind:      config.ModelStatic,
					Name:      "scripted-solo",
					Responses: responses,
				},
			},
		},
		Schema: []config.FieldSpec{
			{Name: "answer", Type: "string", Description: "the answer"},
		},
		Evaluation: config.EvaluationSpec{
			Metrics:  []string{"completeness"},
			MinScore: 0.5,
		},
		Environment: config.EnvironmentSpec{
			MaxRounds:  maxRounds,
			MaxRetries: maxRetries,
		},
	}
}
