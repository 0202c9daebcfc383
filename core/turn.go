package core

import "github.com/google/uuid"

// Turn is one finalized output-production attempt-sequence for one agent in
// one round. A turn is created by the environment after the retry controller
// reaches a terminal decision and must be treated as immutable afterwards.
//
// Raw holds the post-manipulation model text of the last attempt. Output and
// Scores are only populated when the last attempt parsed successfully.
// Retries counts the retries consumed beyond the first attempt; it never
// exceeds the configured retry budget.
type Turn struct {
	Agent    string             `json:"agent"`
	Round    int                `json:"round"`
	Raw      string             `json:"raw"`
	Output   map[string]any     `json:"output,omitempty"`
	Scores   map[string]float64 `json:"scores,omitempty"`
	Score    float64            `json:"score"`
	Accepted bool               `json:"accepted"`
	Retries  int                `json:"retries"`
	Error    string             `json:"error,omitempty"`
}

// NewID generates a new unique identifier for sessions.
func NewID() string { return uuid.NewString() }
