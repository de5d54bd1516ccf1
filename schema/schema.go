// Package schema validates decoded JSON values against a JSON Schema subset.
// It checks highscore request bodies and, when configured, level documents.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// HighscoreBody is the schema every POST /highscore body must satisfy.
var HighscoreBody = map[string]any{
	"type":     "object",
	"required": []any{"highscore"},
	"properties": map[string]any{
		"highscore": map[string]any{"type": "number"},
	},
}

// Validate checks a decoded JSON value against a schema (draft-07 subset).
// A nil schema accepts everything.
//
// Supported keywords:
//   - type (string, number, integer, boolean, object, array, null)
//   - properties, required, additionalProperties
//   - items, minItems, maxItems
//   - minimum, maximum
//   - minLength, maxLength
//   - enum
func Validate(schema map[string]any, value any) error {
	if schema == nil {
		return nil
	}
	return check(schema, value, "$")
}

// Load parses a schema document.
func Load(data []byte) (map[string]any, error) {
	var s map[string]any
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return s, nil
}

func check(schema map[string]any, value any, path string) error {
	if want, ok := schema["type"].(string); ok {
		if err := checkType(want, value, path); err != nil {
			return err
		}
	}
	if allowed, ok := schema["enum"].([]any); ok {
		if !inEnum(allowed, value) {
			return fmt.Errorf("%s: value not in enum %v", path, allowed)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		return checkObject(schema, v, path)
	case []any:
		return checkArray(schema, v, path)
	case string:
		return checkLength(schema, len(v), "string length", "minLength", "maxLength", path)
	case float64:
		return checkNumber(schema, v, path)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return checkNumber(schema, f, path)
	}
	return nil
}

func checkType(want string, value any, path string) error {
	got := typeOf(value)
	switch {
	case got == want:
		return nil
	case want == "number" && got == "integer":
		return nil
	case want == "integer" && got == "number" && isWhole(value):
		return nil
	}
	return fmt.Errorf("%s: expected type %q, got %q", path, want, got)
}

func typeOf(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return "integer"
		}
		return "number"
	case int, int64:
		return "integer"
	default:
		return reflect.TypeOf(v).String()
	}
}

func isWhole(v any) bool {
	f, ok := v.(float64)
	return ok && f == float64(int64(f))
}

func inEnum(allowed []any, value any) bool {
	if n, ok := value.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			value = f
		}
	}
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return true
		}
	}
	return false
}

func checkObject(schema map[string]any, obj map[string]any, path string) error {
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if field, ok := r.(string); ok {
				if _, exists := obj[field]; !exists {
					return fmt.Errorf("%s: missing required field %q", path, field)
				}
			}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for field, raw := range props {
		val, exists := obj[field]
		if !exists {
			continue
		}
		ps, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if err := check(ps, val, path+"."+field); err != nil {
			return err
		}
	}

	if ap, ok := schema["additionalProperties"].(bool); ok && !ap {
		var extra []string
		for field := range obj {
			if _, defined := props[field]; !defined {
				extra = append(extra, field)
			}
		}
		if len(extra) > 0 {
			return fmt.Errorf("%s: additional properties not allowed: %s", path, strings.Join(extra, ", "))
		}
	}
	return nil
}

func checkArray(schema map[string]any, arr []any, path string) error {
	if err := checkLength(schema, len(arr), "array length", "minItems", "maxItems", path); err != nil {
		return err
	}
	if items, ok := schema["items"].(map[string]any); ok {
		for i, elem := range arr {
			if err := check(items, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkLength(schema map[string]any, n int, what, minKey, maxKey, path string) error {
	if v, ok := number(schema[minKey]); ok && float64(n) < v {
		return fmt.Errorf("%s: %s %d is less than %s %v", path, what, n, minKey, v)
	}
	if v, ok := number(schema[maxKey]); ok && float64(n) > v {
		return fmt.Errorf("%s: %s %d is greater than %s %v", path, what, n, maxKey, v)
	}
	return nil
}

func checkNumber(schema map[string]any, n float64, path string) error {
	if v, ok := number(schema["minimum"]); ok && n < v {
		return fmt.Errorf("%s: %v is less than minimum %v", path, n, v)
	}
	if v, ok := number(schema["maximum"]); ok && n > v {
		return fmt.Errorf("%s: %v is greater than maximum %v", path, n, v)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
