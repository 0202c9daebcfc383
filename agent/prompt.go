package agent

import (
	"fmt"
	"strings"

	"github.com/roundtable-ai/roundtable/core"
)

// Exchange is one earlier agent's accepted contribution in the current round.
type Exchange struct {
	Agent string
	Text  string
}

// PromptContext carries everything an attempt's prompt is assembled from.
// All fields are values; prompt assembly is deterministic so that identical
// configurations with deterministic model stubs replay identically.
type PromptContext struct {
	// Task is the session-level task description.
	Task string
	// Round is the 0-indexed round number.
	Round int
	// Shared holds earlier agents' accepted outputs from this round, in
	// turn-taking order. Failed agents never appear here.
	Shared []Exchange
	// Feedback carries the previous attempt's rejection reason when the
	// session is configured to annotate retries; empty otherwise.
	Feedback string
	// Instructions is the schema-derived output contract text.
	Instructions string
}

// buildPrompt renders the attempt prompt from the context and recalled
// memory. Section order is fixed: task, memory, current round, feedback,
// output instructions.
func buildPrompt(pc PromptContext, recalled []core.Entry) string {
	var b strings.Builder

	if pc.Task != "" {
		b.WriteString("Task:\n")
		b.WriteString(pc.Task)
		b.WriteString("\n\n")
	}

	if len(recalled) > 0 {
		b.WriteString("Relevant context from your memory:\n")
		for _, e := range recalled {
			fmt.Fprintf(&b, "- (round %d) %s\n", e.Round, e.Content)
		}
		b.WriteString("\n")
	}

	if len(pc.Shared) > 0 {
		b.WriteString("Contributions so far this round:\n")
		for _, ex := range pc.Shared {
			fmt.Fprintf(&b, "%s: %s\n", ex.Agent, ex.Text)
		}
		b.WriteString("\n")
	}

	if pc.Feedback != "" {
		b.WriteString("Your previous response was rejected: ")
		b.WriteString(pc.Feedback)
		b.WriteString("\nCorrect the problem and respond again.\n\n")
	}

	if pc.Instructions != "" {
		b.WriteString(pc.Instructions)
	}

	return strings.TrimRight(b.String(), "\n")
}
