package manipulator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/roundtable-ai/roundtable/model"
)

// Normalize trims surrounding whitespace and normalizes line endings to \n.
// It deliberately leaves interior spacing alone so JSON string values are
// not rewritten.
type Normalize struct{}

// Name implements Manipulator.
func (Normalize) Name() string { return "normalize" }

// Transform implements Manipulator.
func (Normalize) Transform(_ context.Context, text string, _ *Context) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}

// StripFences removes a surrounding markdown code fence, a common artifact of
// models asked for JSON output.
type StripFences struct{}

// Name implements Manipulator.
func (StripFences) Name() string { return "strip_fences" }

// Transform implements Manipulator.
func (StripFences) Transform(_ context.Context, text string, _ *Context) (string, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text, nil
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text, nil
	}
	// Drop the opening fence line (which may carry a language tag) and a
	// closing fence if present.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// defaultTokenLimit bounds output when no explicit limit is configured.
const defaultTokenLimit = 1024

// tokenEncoding is the tokenizer used for counting; cl100k_base matches the
// chat model families the providers target.
const tokenEncoding = "cl100k_base"

// approxCharsPerToken is the character estimate used when the BPE file is
// unavailable (tiktoken fetches it on first use and may be offline).
const approxCharsPerToken = 4

// TokenLimit truncates output to at most limit tokens. The encoding is
// loaded lazily on first use; when it cannot be loaded, truncation falls
// back to a character estimate so the chain still completes offline.
type TokenLimit struct {
	limit int

	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTokenLimit builds a TokenLimit manipulator; limit <= 0 uses the default.
func NewTokenLimit(limit int) *TokenLimit {
	if limit <= 0 {
		limit = defaultTokenLimit
	}
	return &TokenLimit{limit: limit}
}

// Name implements Manipulator.
func (*TokenLimit) Name() string { return "token_limit" }

func (t *TokenLimit) enc() *tiktoken.Tiktoken {
	t.once.Do(func() {
		t.encoding, _ = tiktoken.GetEncoding(tokenEncoding)
	})
	return t.encoding
}

// Transform implements Manipulator.
func (t *TokenLimit) Transform(_ context.Context, text string, _ *Context) (string, error) {
	if enc := t.enc(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= t.limit {
			return text, nil
		}
		return enc.Decode(tokens[:t.limit]), nil
	}

	limitChars := t.limit * approxCharsPerToken
	runes := []rune(text)
	if len(runes) <= limitChars {
		return text, nil
	}
	return string(runes[:limitChars]), nil
}

// defaultSummarizeThreshold is the character count beyond which Summarize
// rewrites the output.
const defaultSummarizeThreshold = 2000

// Summarize shortens over-long output. When the owning agent has a model
// handle the summary is model-generated; otherwise, or when the model call
// fails, it falls back to plain truncation so the chain still completes.
type Summarize struct {
	threshold int
}

// NewSummarize builds a Summarize manipulator; threshold <= 0 uses the default.
func NewSummarize(threshold int) *Summarize {
	if threshold <= 0 {
		threshold = defaultSummarizeThreshold
	}
	return &Summarize{threshold: threshold}
}

// Name implements Manipulator.
func (*Summarize) Name() string { return "summarize" }

// Transform implements Manipulator.
func (s *Summarize) Transform(ctx context.Context, text string, mc *Context) (string, error) {
	if len(text) <= s.threshold {
		return text, nil
	}
	if mc != nil && mc.Model != nil {
		summary, err := mc.Model.Complete(ctx, model.Request{
			System: "You condense text without losing its structure or meaning.",
			Prompt: fmt.Sprintf("Shorten the following to under %d characters, preserving any JSON structure exactly:\n\n%s", s.threshold, text),
		})
		if err == nil && strings.TrimSpace(summary) != "" {
			return summary, nil
		}
	}
	return text[:s.threshold], nil
}

// Reflection asks the owning agent's model to review its draft output and
// return a corrected version, a self-critique pass before parsing. Without a
// model handle, or when the review call fails or comes back empty, the text
// passes through unchanged.
type Reflection struct{}

// Name implements Manipulator.
func (Reflection) Name() string { return "reflection" }

// Transform implements Manipulator.
func (Reflection) Transform(ctx context.Context, text string, mc *Context) (string, error) {
	if mc == nil || mc.Model == nil {
		return text, nil
	}
	revised, err := mc.Model.Complete(ctx, model.Request{
		System: "You review your own drafts and fix mistakes without changing the required output format.",
		Prompt: fmt.Sprintf("Review the following response. If it contains format or consistency problems, return a corrected version; otherwise return it exactly as is:\n\n%s", text),
	})
	if err != nil || strings.TrimSpace(revised) == "" {
		return text, nil
	}
	return revised, nil
}
