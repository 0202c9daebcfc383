package environment

import "math/rand"

// Order decides which agents act, and in what sequence, within a round.
// Sequence returns indices into the environment's agent slice; every agent
// appears exactly once per round.
type Order interface {
	// Name returns the policy identifier used in configuration.
	Name() string

	// Sequence returns the acting order for the given round over n agents.
	Sequence(round, n int) []int
}

// SequentialOrder schedules agents in declaration order every round.
type SequentialOrder struct{}

// NewSequentialOrder creates the default turn-taking policy.
func NewSequentialOrder() *SequentialOrder { return &SequentialOrder{} }

// Name implements the Order interface.
func (o *SequentialOrder) Name() string { return "sequential" }

// Sequence implements the Order interface.
func (o *SequentialOrder) Sequence(_, n int) []int {
	seq := make([]int, n)
	for i := range seq {
		seq[i] = i
	}
	return seq
}

// RandomOrder shuffles the acting order each round using a seeded source, so
// a fixed seed yields the same schedule across runs.
type RandomOrder struct {
	rnd *rand.Rand
}

// NewRandomOrder creates a shuffling policy deterministic in seed.
func NewRandomOrder(seed int64) *RandomOrder {
	return &RandomOrder{rnd: rand.New(rand.NewSource(seed))}
}

// Name implements the Order interface.
func (o *RandomOrder) Name() string { return "random" }

// Sequence implements the Order interface.
func (o *RandomOrder) Sequence(_, n int) []int {
	return o.rnd.Perm(n)
}

// Compile-time checks.
var (
	_ Order = (*SequentialOrder)(nil)
	_ Order = (*RandomOrder)(nil)
)
