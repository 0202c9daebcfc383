package evaluation

import "fmt"

// Factory constructs a metric instance.
type Factory func() Metric

// Registry maps metric names to factories. Populated at build time, read-only
// afterwards.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the built-in metrics:
// completeness, length, lexical_diversity.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("completeness", func() Metric { return Completeness{} })
	r.Register("length", func() Metric { return Length{} })
	r.Register("lexical_diversity", func() Metric { return LexicalDiversity{} })
	return r
}

// Register adds or replaces a named metric factory.
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// Resolve instantiates metrics for the given names. An unknown name is a
// configuration error surfaced before the session starts.
func (r *Registry) Resolve(names []string) ([]Metric, error) {
	metrics := make([]Metric, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q", name)
		}
		metrics = append(metrics, f())
	}
	return metrics, nil
}
