// Package manipulator provides ordered, named post-processing of raw agent
// output before parsing. A chain applies its manipulators strictly in
// declared order, each consuming the prior's output; a failing step aborts
// the chain so the enclosing turn fails instead of silently skipping a
// declared transformation.
package manipulator

import (
	"context"
	"fmt"

	"github.com/roundtable-ai/roundtable/model"
)

// Context carries per-turn information to manipulators. Model is the owning
// agent's model handle for model-backed transformations; it may be nil.
type Context struct {
	Agent string
	Round int
	Model model.Model
}

// Manipulator is a single named text transformation.
type Manipulator interface {
	Name() string
	Transform(ctx context.Context, text string, mc *Context) (string, error)
}

// StepError reports which manipulator in a chain failed.
type StepError struct {
	Manipulator string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("manipulator %q failed: %v", e.Manipulator, e.Err)
}

// Unwrap exposes the underlying transformation error.
func (e *StepError) Unwrap() error { return e.Err }

// Chain is an immutable ordered sequence of manipulators owned by one agent.
type Chain struct {
	steps []Manipulator
}

// NewChain builds a chain from the given steps.
func NewChain(steps ...Manipulator) *Chain {
	return &Chain{steps: steps}
}

// Apply runs every step in order. The first failing step aborts the chain
// with a *StepError.
func (c *Chain) Apply(ctx context.Context, text string, mc *Context) (string, error) {
	for _, step := range c.steps {
		var err error
		text, err = step.Transform(ctx, text, mc)
		if err != nil {
			return "", &StepError{Manipulator: step.Name(), Err: err}
		}
	}
	return text, nil
}

// Names returns the declared step names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.Name()
	}
	return names
}

// Len reports the number of steps.
func (c *Chain) Len() int { return len(c.steps) }
