package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stevemurr/puzzle-level-server/schema"
)

func decodeBody(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestValidateNilSchema(t *testing.T) {
	if err := schema.Validate(nil, map[string]any{"anything": "goes"}); err != nil {
		t.Fatalf("nil schema should pass: %v", err)
	}
}

func TestHighscoreBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"integer", `{"highscore": 50}`, true},
		{"fraction", `{"highscore": 12.5}`, true},
		{"zero", `{"highscore": 0}`, true},
		{"extra fields ignored", `{"highscore": 3, "player": "x"}`, true},
		{"missing", `{}`, false},
		{"null", `{"highscore": null}`, false},
		{"string", `{"highscore": "50"}`, false},
		{"negative", `{"highscore": -1}`, true},
		{"not an object", `[50]`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(schema.HighscoreBody, decodeBody(t, tc.body))
			if tc.ok && err != nil {
				t.Fatalf("expected pass: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	s := map[string]any{
		"type":     "object",
		"required": []any{"grid", "moves"},
	}

	if err := schema.Validate(s, map[string]any{"grid": []any{}}); err == nil {
		t.Fatal("expected error for missing 'moves'")
	}
	if err := schema.Validate(s, map[string]any{"grid": []any{}, "moves": float64(3)}); err != nil {
		t.Fatalf("expected pass: %v", err)
	}
}

func TestValidateIntegerAcceptsWholeFloats(t *testing.T) {
	s := map[string]any{"type": "integer"}

	if err := schema.Validate(s, float64(4)); err != nil {
		t.Fatalf("expected pass: %v", err)
	}
	if err := schema.Validate(s, float64(4.5)); err == nil {
		t.Fatal("expected error for fractional value")
	}
}

func TestValidateAdditionalProperties(t *testing.T) {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"size": map[string]any{"type": "integer"},
		},
		"additionalProperties": false,
	}

	if err := schema.Validate(s, map[string]any{"size": float64(5), "extra": "bad"}); err == nil {
		t.Fatal("expected error for additional properties")
	}
	if err := schema.Validate(s, map[string]any{"size": float64(5)}); err != nil {
		t.Fatalf("expected pass: %v", err)
	}
}

func TestValidateLevelDocument(t *testing.T) {
	s, err := schema.Load([]byte(`{
		"type": "object",
		"required": ["width", "rows"],
		"properties": {
			"width": {"type": "integer", "minimum": 1, "maximum": 20},
			"rows": {
				"type": "array",
				"minItems": 1,
				"items": {"type": "string", "minLength": 1}
			},
			"kind": {"enum": ["sokoban", "sliding"]}
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	good := map[string]any{"width": float64(3), "rows": []any{"#.#"}, "kind": "sokoban"}
	if err := schema.Validate(s, good); err != nil {
		t.Fatalf("expected pass: %v", err)
	}

	bad := []map[string]any{
		{"width": float64(0), "rows": []any{"#"}},
		{"width": float64(21), "rows": []any{"#"}},
		{"width": float64(3), "rows": []any{}},
		{"width": float64(3), "rows": []any{""}},
		{"width": float64(3), "rows": []any{float64(1)}},
		{"width": float64(3), "rows": []any{"#"}, "kind": "maze"},
	}
	for i, doc := range bad {
		if err := schema.Validate(s, doc); err == nil {
			t.Fatalf("case %d: expected error for %v", i, doc)
		}
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	if _, err := schema.Load([]byte(`{"type":`)); err == nil {
		t.Fatal("expected parse error")
	}
}
