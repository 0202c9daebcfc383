package environment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-ai/roundtable/agent"
	"github.com/roundtable-ai/roundtable/core"
	"github.com/roundtable-ai/roundtable/evaluation"
	"github.com/roundtable-ai/roundtable/manipulator"
	"github.com/roundtable-ai/roundtable/memory"
	"github.com/roundtable-ai/roundtable/model"
	"github.com/roundtable-ai/roundtable/parser"
	"github.com/roundtable-ai/roundtable/schema"
)

// recordingModel replays scripted responses while capturing every prompt it
// was asked to complete.
type recordingModel struct {
	mu        sync.Mutex
	inner     *model.ScriptedModel
	prompts   []string
	feedbacks []string
}

func newRecordingModel(responses ...string) *recordingModel {
	return &recordingModel{inner: model.NewScriptedModel("recorder", responses...)}
}

func (m *recordingModel) Complete(ctx context.Context, req model.Request) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()
	return m.inner.Complete(ctx, req)
}

func (m *recordingModel) Info() model.Info { return m.inner.Info() }

func (m *recordingModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func answerSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Field{
		Name:        "answer",
		Type:        schema.TypeString,
		Description: "the agent's contribution",
	})
	require.NoError(t, err)
	return s
}

func newTestRuntime(t *testing.T, name string, m model.Model, store core.MemoryStore) *agent.Runtime {
	t.Helper()
	rt, err := agent.NewRuntime(name, "participant", m, parser.NewJSONParser(answerSchema(t)), manipulator.NewChain(), store)
	require.NoError(t, err)
	return rt
}

func newTestEvaluator(t *testing.T, minScore float64) *evaluation.Evaluator {
	t.Helper()
	ev, err := evaluation.New([]evaluation.Metric{evaluation.Completeness{}}, minScore)
	require.NoError(t, err)
	return ev
}

func TestEnvironmentSingleRound(t *testing.T) {
	alice := newRecordingModel(`{"answer": "hello from alice"}`)
	bob := newRecordingModel(`{"answer": "hello from bob"}`)

	env, err := New(
		[]*agent.Runtime{
			newTestRuntime(t, "alice", alice, memory.NewSimpleStore()),
			newTestRuntime(t, "bob", bob, memory.NewSimpleStore()),
		},
		newTestEvaluator(t, 0.5),
		Config{Task: "say hello", MaxRounds: 1},
	)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, env.State())

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, env.State())
	assert.Equal(t, core.TerminationRoundsExhausted, result.Termination)

	require.Len(t, result.Turns, 2)
	assert.Equal(t, "alice", result.Turns[0].Agent)
	assert.Equal(t, "bob", result.Turns[1].Agent)
	for _, turn := range result.Turns {
		assert.True(t, turn.Accepted)
		assert.Equal(t, 0, turn.Retries)
		assert.Equal(t, 0, turn.Round)
	}

	// Bob acts second and must see Alice's accepted contribution, while
	// Alice's first prompt carries no shared context.
	require.Len(t, bob.Prompts(), 1)
	assert.Contains(t, bob.Prompts()[0], "hello from alice")
	assert.NotContains(t, alice.Prompts()[0], "hello from bob")
}

func TestEnvironmentTranscriptShape(t *testing.T) {
	const rounds = 3
	agents := []*agent.Runtime{
		newTestRuntime(t, "a", newRecordingModel(`{"answer": "x"}`), memory.NewSimpleStore()),
		newTestRuntime(t, "b", newRecordingModel(`{"answer": "y"}`), memory.NewSimpleStore()),
	}

	env, err := New(agents, newTestEvaluator(t, 0.5), Config{Task: "t", MaxRounds: rounds})
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)

	// Exactly one turn per agent per round, grouped by round in acting order.
	require.Len(t, result.Turns, rounds*len(agents))
	for i, turn := range result.Turns {
		assert.Equal(t, i/len(agents), turn.Round)
	}
}

func TestEnvironmentAcceptsAfterRetries(t *testing.T) {
	m := newRecordingModel(
		"not json at all",
		"still not json",
		`{"answer": "third time lucky"}`,
	)
	store := memory.NewSimpleStore()

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", m, store)},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 2},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Turns, 1)
	turn := result.Turns[0]
	assert.True(t, turn.Accepted)
	assert.Equal(t, 2, turn.Retries)
	assert.Equal(t, "third time lucky", turn.Output["answer"])
	assert.Empty(t, turn.Error)

	// Only the accepted output is remembered.
	assert.Equal(t, 1, store.Len())
	assert.Len(t, m.Prompts(), 3)
}

func TestEnvironmentFailsAfterRetryExhaustion(t *testing.T) {
	m := newRecordingModel("garbage")
	store := memory.NewSimpleStore()

	env, err := New(
		[]*agent.Runtime{
			newTestRuntime(t, "flaky", m, store),
			newTestRuntime(t, "steady", newRecordingModel(`{"answer": "fine"}`), memory.NewSimpleStore()),
		},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 1},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, env.State())

	require.Len(t, result.Turns, 2)
	failed := result.Turns[0]
	assert.False(t, failed.Accepted)
	assert.Equal(t, 1, failed.Retries)
	assert.NotEmpty(t, failed.Error)

	// Exactly the original attempt plus one retry, and nothing remembered.
	assert.Len(t, m.Prompts(), 2)
	assert.Equal(t, 0, store.Len())

	// The session carries on past the failed turn.
	assert.True(t, result.Turns[1].Accepted)
}

func TestEnvironmentFailsOnPersistentLowScore(t *testing.T) {
	// Parses fine, but the only schema field is empty, so completeness
	// scores 0 on every attempt.
	m := newRecordingModel(`{"answer": ""}`)
	store := memory.NewSimpleStore()

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "lowballer", m, store)},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 1},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Turns, 1)
	turn := result.Turns[0]
	assert.False(t, turn.Accepted)
	assert.Equal(t, 1, turn.Retries)
	assert.Contains(t, turn.Error, "threshold")

	// The losing attempt's scores stay on the transcript.
	require.Contains(t, turn.Scores, "completeness")
	assert.Equal(t, 0.0, turn.Scores["completeness"])

	assert.Len(t, m.Prompts(), 2)
	assert.Equal(t, 0, store.Len())
}

func TestEnvironmentRetryFeedback(t *testing.T) {
	m := newRecordingModel("garbage", `{"answer": "ok"}`)

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", m, memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 1, RetryFeedback: true},
	)
	require.NoError(t, err)

	_, err = env.Run(context.Background())
	require.NoError(t, err)

	prompts := m.Prompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], "rejected")
	assert.Contains(t, prompts[1], "rejected")
}

func TestEnvironmentNoFeedbackByDefault(t *testing.T) {
	m := newRecordingModel("garbage", `{"answer": "ok"}`)

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", m, memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 1},
	)
	require.NoError(t, err)

	_, err = env.Run(context.Background())
	require.NoError(t, err)

	prompts := m.Prompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[1], "rejected")
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Remember(context.Context, core.Entry) error {
	return &core.MemoryUnavailableError{Op: "remember", Err: context.DeadlineExceeded}
}

func (brokenStore) Recall(context.Context, string) ([]core.Entry, error) {
	return nil, &core.MemoryUnavailableError{Op: "recall", Err: context.DeadlineExceeded}
}

func TestEnvironmentMemoryFailureSkipsRetryBudget(t *testing.T) {
	m := newRecordingModel(`{"answer": "never gets this far"}`)

	env, err := New(
		[]*agent.Runtime{
			newTestRuntime(t, "amnesiac", m, brokenStore{}),
			newTestRuntime(t, "steady", newRecordingModel(`{"answer": "fine"}`), memory.NewSimpleStore()),
		},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 3},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Turns, 2)
	failed := result.Turns[0]
	assert.False(t, failed.Accepted)
	assert.Equal(t, 0, failed.Retries, "memory failure must not consume retries")
	assert.Contains(t, failed.Error, "memory unavailable")

	// Recall fails before the model is ever invoked.
	assert.Empty(t, m.Prompts())
	assert.True(t, result.Turns[1].Accepted)
}

func TestEnvironmentInvocationErrorConsumesRetry(t *testing.T) {
	m := model.NewScriptedModelSteps("flaky",
		model.Step{Err: errors.New("upstream 500")},
		model.Step{Text: `{"answer": "recovered"}`},
	)

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", m, memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 1},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Turns, 1)
	turn := result.Turns[0]
	assert.True(t, turn.Accepted)
	assert.Equal(t, 1, turn.Retries, "a failed model call costs one retry")
	assert.Equal(t, "recovered", turn.Output["answer"])
	assert.Equal(t, 2, m.Calls())
}

// stallingModel blocks its first call until the context expires, then
// answers normally.
type stallingModel struct {
	mu    sync.Mutex
	calls int
}

func (m *stallingModel) Complete(ctx context.Context, _ model.Request) (string, error) {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.mu.Unlock()
	if first {
		<-ctx.Done()
		return "", &model.InvocationError{Provider: "static", Err: ctx.Err()}
	}
	return `{"answer": "quick this time"}`, nil
}

func (m *stallingModel) Info() model.Info { return model.Info{Name: "staller", Provider: "static"} }

func TestEnvironmentInvocationTimeoutConsumesRetry(t *testing.T) {
	m := &stallingModel{}

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", m, memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1, MaxRetries: 1, InvocationTimeout: 10 * time.Millisecond},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Turns, 1)
	turn := result.Turns[0]
	assert.True(t, turn.Accepted)
	assert.Equal(t, 1, turn.Retries, "an elapsed per-call timeout costs one retry")
	assert.Contains(t, turn.Output["answer"], "quick")
}

func TestEnvironmentDeterministicReplay(t *testing.T) {
	run := func() []byte {
		agents := []*agent.Runtime{
			newTestRuntime(t, "alice", newRecordingModel(
				"garbage first", `{"answer": "from alice"}`,
			), memory.NewSimpleStore()),
			newTestRuntime(t, "bob", newRecordingModel(
				`{"answer": "from bob"}`,
			), memory.NewSimpleStore()),
		}
		env, err := New(agents, newTestEvaluator(t, 0.5), Config{
			Task:       "t",
			MaxRounds:  3,
			MaxRetries: 1,
			Order:      NewRandomOrder(13),
		})
		require.NoError(t, err)

		result, err := env.Run(context.Background())
		require.NoError(t, err)

		encoded, err := json.Marshal(result.Turns)
		require.NoError(t, err)
		return encoded
	}

	first := run()
	second := run()
	assert.Equal(t, string(first), string(second), "identical configs and scripts must replay byte-identically")
}

func TestEnvironmentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", newRecordingModel(`{"answer": "x"}`), memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 3},
	)
	require.NoError(t, err)

	result, err := env.Run(ctx)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, StateFailed, env.State())

	require.NotNil(t, result)
	assert.Equal(t, core.TerminationFatalError, result.Termination)
	assert.NotEmpty(t, result.FatalReason)
	assert.Empty(t, result.Turns)
}

func TestEnvironmentCompletionKeyword(t *testing.T) {
	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", newRecordingModel(`{"answer": "we are DONE here"}`), memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 5, CompletionKeyword: "DONE"},
	)
	require.NoError(t, err)

	result, err := env.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.TerminationExplicitCompletion, result.Termination)
	assert.Len(t, result.Turns, 1)
}

func TestEnvironmentRunOnce(t *testing.T) {
	env, err := New(
		[]*agent.Runtime{newTestRuntime(t, "solo", newRecordingModel(`{"answer": "x"}`), memory.NewSimpleStore())},
		newTestEvaluator(t, 0.5),
		Config{Task: "t", MaxRounds: 1},
	)
	require.NoError(t, err)

	_, err = env.Run(context.Background())
	require.NoError(t, err)

	_, err = env.Run(context.Background())
	require.Error(t, err)
}

func TestEnvironmentConfigValidation(t *testing.T) {
	rt := newTestRuntime(t, "solo", newRecordingModel("x"), memory.NewSimpleStore())
	ev := newTestEvaluator(t, 0.5)

	_, err := New(nil, ev, Config{MaxRounds: 1})
	require.Error(t, err)

	_, err = New([]*agent.Runtime{rt}, nil, Config{MaxRounds: 1})
	require.Error(t, err)

	_, err = New([]*agent.Runtime{rt}, ev, Config{MaxRounds: 0})
	require.Error(t, err)

	_, err = New([]*agent.Runtime{rt}, ev, Config{MaxRounds: 1, MaxRetries: -1})
	require.Error(t, err)
}

func TestSequentialOrder(t *testing.T) {
	o := NewSequentialOrder()
	assert.Equal(t, []int{0, 1, 2}, o.Sequence(0, 3))
	assert.Equal(t, []int{0, 1, 2}, o.Sequence(7, 3))
}

func TestRandomOrderDeterministic(t *testing.T) {
	first := NewRandomOrder(42)
	second := NewRandomOrder(42)

	for round := 0; round < 5; round++ {
		a := first.Sequence(round, 4)
		b := second.Sequence(round, 4)
		assert.Equal(t, a, b)
		assert.ElementsMatch(t, []int{0, 1, 2, 3}, a)
	}
}

func TestRandomOrderInEnvironment(t *testing.T) {
	run := func(seed int64) []string {
		agents := []*agent.Runtime{
			newTestRuntime(t, "a", newRecordingModel(`{"answer": "x"}`), memory.NewSimpleStore()),
			newTestRuntime(t, "b", newRecordingModel(`{"answer": "y"}`), memory.NewSimpleStore()),
			newTestRuntime(t, "c", newRecordingModel(`{"answer": "z"}`), memory.NewSimpleStore()),
		}
		env, err := New(agents, newTestEvaluator(t, 0.5), Config{
			Task:      "t",
			MaxRounds: 2,
			Order:     NewRandomOrder(seed),
		})
		require.NoError(t, err)

		result, err := env.Run(context.Background())
		require.NoError(t, err)

		names := make([]string, 0, len(result.Turns))
		for _, turn := range result.Turns {
			names = append(names, turn.Agent)
		}
		return names
	}

	assert.Equal(t, run(7), run(7), "same seed must replay the same schedule")
	assert.Equal(t, "a|b|c", strings.Join(sortedUnique(run(7)), "|"))
}

func sortedUnique(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	// Turn order within a round is a permutation, so first occurrences cover
	// every agent; sort for a stable comparison.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
