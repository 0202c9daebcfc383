package parser

import (
	"fmt"
	"strings"

	"github.com/roundtable-ai/roundtable/schema"
)

// TextParser maps the whole model output onto a schema with exactly one
// required string field; remaining optional fields take their defaults.
// It suits free-form conversational agents that carry no structure beyond
// the text itself.
type TextParser struct {
	schema *schema.Schema
	field  string
}

// NewTextParser creates a TextParser, rejecting schemas the plain-text shape
// cannot satisfy.
func NewTextParser(s *schema.Schema) (*TextParser, error) {
	var target string
	for _, f := range s.Fields() {
		if !f.Required() {
			continue
		}
		if f.Type != schema.TypeString {
			return nil, fmt.Errorf("text parser cannot supply required %s field %q", f.Type, f.Name)
		}
		if target != "" {
			return nil, fmt.Errorf("text parser supports exactly one required field, schema has %q and %q", target, f.Name)
		}
		target = f.Name
	}
	if target == "" {
		return nil, fmt.Errorf("text parser requires one required string field")
	}
	return &TextParser{schema: s, field: target}, nil
}

// Parse implements Parser.
func (p *TextParser) Parse(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &ParseError{Field: p.field, Fragment: "", Reason: "empty output"}
	}
	return validate(p.schema, map[string]any{p.field: trimmed}, text)
}
