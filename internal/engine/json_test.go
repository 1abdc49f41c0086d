package engine

import (
	"testing"
)

func TestParseJSONObjectPlain(t *testing.T) {
	result := ParseJSONObject(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONObjectWithCodeFence(t *testing.T) {
	text := "```json\n{\"key\": \"value\"}\n```"
	result := ParseJSONObject(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONObjectUnwrapsArray(t *testing.T) {
	result := ParseJSONObject(`[{"summary": "finding"}]`)
	if result == nil {
		t.Fatal("expected non-nil result for wrapped object")
	}
	if result["summary"] != "finding" {
		t.Errorf("expected summary='finding', got %v", result["summary"])
	}
}

func TestParseJSONObjectArrayOfNonObjects(t *testing.T) {
	if result := ParseJSONObject(`[1, 2, 3]`); result != nil {
		t.Errorf("expected nil for array of numbers, got %v", result)
	}
	if result := ParseJSONObject(`[]`); result != nil {
		t.Errorf("expected nil for empty array, got %v", result)
	}
}

func TestParseJSONObjectInvalid(t *testing.T) {
	if result := ParseJSONObject("not json at all"); result != nil {
		t.Error("expected nil for invalid JSON")
	}
}

func TestParseJSONObjectEmpty(t *testing.T) {
	if result := ParseJSONObject(""); result != nil {
		t.Error("expected nil for empty string")
	}
}

func TestGetString(t *testing.T) {
	m := map[string]any{"a": "x", "b": 3}
	if got := GetString(m, "a", "fb"); got != "x" {
		t.Errorf("expected 'x', got %q", got)
	}
	if got := GetString(m, "b", "fb"); got != "fb" {
		t.Errorf("expected fallback for non-string, got %q", got)
	}
	if got := GetString(m, "c", "fb"); got != "fb" {
		t.Errorf("expected fallback for missing key, got %q", got)
	}
}
