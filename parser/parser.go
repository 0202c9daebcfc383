// Package parser converts raw model text into a structured value conforming
// to a declared schema. Parsing is pure: a parser either returns a fully
// typed value or a *ParseError naming the offending field or raw fragment,
// never a partially-typed result.
package parser

import (
	"fmt"
	"strings"

	"github.com/roundtable-ai/roundtable/schema"
)

// Parser interprets raw model output as a value conforming to a schema.
type Parser interface {
	Parse(text string) (map[string]any, error)
}

// ParseError reports that model output did not conform to the schema. Field
// names the offending field when known; Fragment carries a bounded excerpt of
// the raw text otherwise.
type ParseError struct {
	Field    string
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse error on field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("parse error: %s (fragment: %q)", e.Reason, e.Fragment)
}

const fragmentLimit = 120

// snippet bounds raw text for inclusion in errors.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > fragmentLimit {
		return text[:fragmentLimit] + "..."
	}
	return text
}

// validate runs schema validation mapping field violations to ParseErrors.
func validate(s *schema.Schema, values map[string]any, raw string) (map[string]any, error) {
	out, err := s.Validate(values)
	if err != nil {
		if fe, ok := err.(*schema.FieldError); ok {
			return nil, &ParseError{Field: fe.Field, Fragment: snippet(raw), Reason: fe.Reason}
		}
		return nil, &ParseError{Fragment: snippet(raw), Reason: err.Error()}
	}
	return out, nil
}
