// Package evaluation scores a turn's structured output against named metrics
// and a minimum-score threshold. Metric computation is pluggable per name;
// unknown metric names are rejected when the session is built, never at
// evaluation time.
package evaluation

import (
	"fmt"
	"math"
	"strings"
)

// Metric scores one turn. Implementations must be pure and deterministic and
// return values in [0, 1].
type Metric interface {
	Name() string
	Score(raw string, output map[string]any) float64
}

// ThresholdError reports that a turn's aggregate score fell below the
// configured minimum. It consumes one retry, like a parse failure.
type ThresholdError struct {
	Aggregate float64
	MinScore  float64
	Scores    map[string]float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("aggregate score %.3f below threshold %.3f", e.Aggregate, e.MinScore)
}

// Evaluator applies a fixed metric set to turn outputs. The aggregate is the
// minimum across metric scores, so a turn must clear the threshold on every
// metric.
type Evaluator struct {
	metrics  []Metric
	minScore float64
}

// New builds an Evaluator. The metric list must be non-empty and minScore
// must lie in [0, 1].
func New(metrics []Metric, minScore float64) (*Evaluator, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("evaluator requires at least one metric")
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("min_score %v outside [0,1]", minScore)
	}
	return &Evaluator{metrics: metrics, minScore: minScore}, nil
}

// MinScore returns the acceptance threshold.
func (e *Evaluator) MinScore() float64 { return e.minScore }

// Score computes every metric for the given turn output.
func (e *Evaluator) Score(raw string, output map[string]any) map[string]float64 {
	scores := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		scores[m.Name()] = clamp(m.Score(raw, output))
	}
	return scores
}

// Check scores the turn and compares the aggregate against the threshold.
// A sub-threshold aggregate yields a *ThresholdError; the scores are returned
// either way so failed turns still carry them in the transcript.
func (e *Evaluator) Check(raw string, output map[string]any) (map[string]float64, float64, error) {
	scores := e.Score(raw, output)
	agg := math.Inf(1)
	for _, s := range scores {
		if s < agg {
			agg = s
		}
	}
	if agg < e.minScore {
		return scores, agg, &ThresholdError{Aggregate: agg, MinScore: e.minScore, Scores: scores}
	}
	return scores, agg, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Completeness scores the fraction of schema fields carrying a non-empty
// value in the structured output.
type Completeness struct{}

// Name implements Metric.
func (Completeness) Name() string { return "completeness" }

// Score implements Metric.
func (Completeness) Score(_ string, output map[string]any) float64 {
	if len(output) == 0 {
		return 0
	}
	filled := 0
	for _, v := range output {
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				filled++
			}
		case nil:
			// empty
		default:
			filled++
		}
	}
	return float64(filled) / float64(len(output))
}

// defaultLengthTarget is the raw-output length at which the length metric
// saturates at 1.0.
const defaultLengthTarget = 80

// Length rewards substantive output, scaling linearly up to a target length.
type Length struct {
	Target int
}

// Name implements Metric.
func (Length) Name() string { return "length" }

// Score implements Metric.
func (l Length) Score(raw string, _ map[string]any) float64 {
	target := l.Target
	if target <= 0 {
		target = defaultLengthTarget
	}
	n := len(strings.TrimSpace(raw))
	if n >= target {
		return 1
	}
	return float64(n) / float64(target)
}

// LexicalDiversity scores the ratio of distinct words to total words in the
// raw output, a cheap proxy for degenerate repetition.
type LexicalDiversity struct{}

// Name implements Metric.
func (LexicalDiversity) Name() string { return "lexical_diversity" }

// Score implements Metric.
func (LexicalDiversity) Score(raw string, _ map[string]any) float64 {
	words := strings.Fields(strings.ToLower(raw))
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.Trim(w, ".,!?;:\"'()")] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}
