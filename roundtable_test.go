package roundtable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-ai/roundtable/config"
	"github.com/roundtable-ai/roundtable/core"
	"github.com/roundtable-ai/roundtable/internal/testutil"
)

func TestRun(t *testing.T) {
	cfg := testutil.SoloConfig([]string{`{"answer": "42"}`}, 1, 0)

	result, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, core.TerminationRoundsExhausted, result.Termination)
	require.Len(t, result.Turns, 1)
	assert.Equal(t, "42", result.Turns[0].Output["answer"])
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := testutil.SoloConfig([]string{`{"answer": "42"}`}, 0, 0)

	_, err := Run(context.Background(), cfg)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunAll(t *testing.T) {
	cfgs := []*config.SessionConfig{
		testutil.SoloConfig([]string{`{"answer": "first"}`}, 1, 0),
		testutil.SoloConfig([]string{`{"answer": "second"}`}, 1, 0),
		testutil.SoloConfig([]string{`{"answer": "third"}`}, 1, 0),
	}

	results, err := RunAll(context.Background(), cfgs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Results hold input order regardless of completion order, and every
	// session runs under its own identifier.
	ids := map[string]bool{}
	for i, want := range []string{"first", "second", "third"} {
		require.NotNil(t, results[i])
		assert.Equal(t, want, results[i].Turns[0].Output["answer"])
		ids[results[i].SessionID] = true
	}
	assert.Len(t, ids, 3)
}

func TestRunAllStopsOnInvalidConfig(t *testing.T) {
	cfgs := []*config.SessionConfig{
		testutil.SoloConfig([]string{`{"answer": "ok"}`}, 1, 0),
		testutil.SoloConfig(nil, 1, 0), // static model without responses
	}

	_, err := RunAll(context.Background(), cfgs)
	require.Error(t, err)
}
