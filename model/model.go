// Package model defines the model-invocation capability the engine depends
// on: produce a text completion for an assembled prompt. Providers wrap
// vendor SDKs behind the Model interface; the engine never retries or backs
// off inside this capability, since turn-level retries live one layer up in
// the environment's retry controller.
package model

import (
	"context"
	"fmt"
	"sync"
)

// Request is the normalized model input assembled by an agent runtime.
type Request struct {
	// System carries the agent's role context.
	System string
	// Prompt is the assembled user prompt for this attempt.
	Prompt string
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "static", ...
}

// InvocationError reports that a model invocation failed or timed out. The
// environment treats it like a parse failure: it consumes one retry and never
// crashes the session.
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (%s): %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *InvocationError) Unwrap() error { return e.Err }

// Model is the minimal interface agent runtimes use to drive generation.
type Model interface {
	// Complete produces a text completion for the request. Implementations
	// must respect ctx cancellation and deadlines.
	Complete(ctx context.Context, req Request) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Step is one scripted model response used by ScriptedModel.
type Step struct {
	Text string
	Err  error
}

// ScriptedModel replays a fixed sequence of responses, one per Complete call,
// repeating the final step once the script is exhausted. It is the
// deterministic stand-in used by tests and examples.
type ScriptedModel struct {
	mu    sync.Mutex
	name  string
	steps []Step
	calls int
}

// NewScriptedModel builds a ScriptedModel from plain text responses.
func NewScriptedModel(name string, responses ...string) *ScriptedModel {
	steps := make([]Step, len(responses))
	for i, r := range responses {
		steps[i] = Step{Text: r}
	}
	return &ScriptedModel{name: name, steps: steps}
}

// NewScriptedModelSteps builds a ScriptedModel from explicit steps, allowing
// injected invocation errors.
func NewScriptedModelSteps(name string, steps ...Step) *ScriptedModel {
	return &ScriptedModel{name: name, steps: steps}
}

// Complete implements Model.
func (m *ScriptedModel) Complete(ctx context.Context, _ Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &InvocationError{Provider: "static", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.steps) == 0 {
		return "", &InvocationError{Provider: "static", Err: fmt.Errorf("no scripted responses")}
	}
	i := m.calls
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	m.calls++
	step := m.steps[i]
	if step.Err != nil {
		return "", &InvocationError{Provider: "static", Err: step.Err}
	}
	return step.Text, nil
}

// Calls reports how many times Complete has been invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return Info{Name: m.name, Provider: "static"} }
