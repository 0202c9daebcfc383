package parser

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roundtable-ai/roundtable/schema"
)

// JSONParser interprets model output as a single JSON object matching the
// schema. It tolerates surrounding prose and markdown fences by extracting
// the outermost object from the text before validating.
type JSONParser struct {
	schema *schema.Schema
}

// NewJSONParser creates a JSONParser bound to the given schema.
func NewJSONParser(s *schema.Schema) *JSONParser {
	return &JSONParser{schema: s}
}

// Parse implements Parser.
func (p *JSONParser) Parse(text string) (map[string]any, error) {
	doc, ok := extractObject(text)
	if !ok {
		return nil, &ParseError{Fragment: snippet(text), Reason: "no JSON object found"}
	}

	root := gjson.Parse(doc)
	if !root.IsObject() {
		return nil, &ParseError{Fragment: snippet(text), Reason: "top-level JSON value is not an object"}
	}

	values := make(map[string]any, len(p.schema.Fields()))
	for _, f := range p.schema.Fields() {
		r := root.Get(literalPath(f.Name))
		if !r.Exists() || r.Type == gjson.Null {
			continue // schema validation decides required vs default
		}
		v, err := resultValue(r)
		if err != nil {
			return nil, &ParseError{Field: f.Name, Fragment: snippet(text), Reason: err.Error()}
		}
		values[f.Name] = v
	}

	return validate(p.schema, values, text)
}

// resultValue converts a gjson result into a primitive Go value. Nested
// objects and arrays are rejected because the schema only declares primitives.
func resultValue(r gjson.Result) (any, error) {
	switch r.Type {
	case gjson.String:
		return r.String(), nil
	case gjson.Number:
		return r.Float(), nil
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	default:
		return nil, fmt.Errorf("value is not a primitive")
	}
}

// literalPath escapes a field name so gjson treats it as a literal object
// key rather than a path expression. Without this, a name like "a.b" would
// resolve as a nested lookup and "*" or "?" as wildcards.
func literalPath(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '.', '*', '?', '\\', '|', '@', '#':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// extractObject returns the outermost JSON object embedded in text. It first
// tries the trimmed text as-is, then the span from the first '{' to the last
// '}' to shed code fences and prose around the object.
func extractObject(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && gjson.Valid(trimmed) {
		return trimmed, true
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := trimmed[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}
	return candidate, true
}
