package manipulator

import "fmt"

// Factory constructs a manipulator instance for one agent's chain.
type Factory func() (Manipulator, error)

// Registry maps manipulator names to factories. A registry is populated once
// at build time and then only read; chains are constructed per agent, never
// shared or mutated at runtime.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the built-in
// manipulators: normalize, strip_fences, token_limit, summarize, reflection.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("normalize", func() (Manipulator, error) { return Normalize{}, nil })
	r.Register("strip_fences", func() (Manipulator, error) { return StripFences{}, nil })
	r.Register("token_limit", func() (Manipulator, error) { return NewTokenLimit(0), nil })
	r.Register("summarize", func() (Manipulator, error) { return NewSummarize(0), nil })
	r.Register("reflection", func() (Manipulator, error) { return Reflection{}, nil })
	return r
}

// Register adds or replaces a named factory.
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// Resolve builds a chain from ordered manipulator names. Unknown names are a
// configuration error surfaced before the session starts.
func (r *Registry) Resolve(names []string) (*Chain, error) {
	steps := make([]Manipulator, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown manipulator %q", name)
		}
		m, err := f()
		if err != nil {
			return nil, fmt.Errorf("build manipulator %q: %w", name, err)
		}
		steps = append(steps, m)
	}
	return NewChain(steps...), nil
}
