package llm

import (
	"testing"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"key": "value", "num": 42}`)
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

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	text := "```json\n{\"key\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseWithPlainFence(t *testing.T) {
	text := "```\n{\"key\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	result := ParseJSONResponse("not json at all")
	if result != nil {
		t.Error("expected nil for invalid JSON")
	}
}

func TestParseJSONResponseEmpty(t *testing.T) {
	result := ParseJSONResponse("")
	if result != nil {
		t.Error("expected nil for empty string")
	}
}

func TestParseJSONResponseWhitespace(t *testing.T) {
	result := ParseJSONResponse("  \n  {\"key\": \"value\"}  \n  ")
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseWithProse(t *testing.T) {
	result := ParseJSONResponse("Sure! Here it is:\n{\"key\": \"value\"}\nLet me know.")
	if result == nil || result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result)
	}
}

func TestParseJSONArrayBare(t *testing.T) {
	items, ok := ParseJSONArray(`[{"trend": "A"}, {"trend": "B"}]`)
	if !ok {
		t.Fatal("expected ok")
	}
	if len(items) != 2 || items[1]["trend"] != "B" {
		t.Errorf("unexpected items: %v", items)
	}
}

func TestParseJSONArrayFencedEmpty(t *testing.T) {
	items, ok := ParseJSONArray("```json\n[]\n```")
	if !ok {
		t.Fatal("empty array should parse")
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestParseJSONArrayWrappedObject(t *testing.T) {
	items, ok := ParseJSONArray(`{"trends": [{"trend": "A"}, "junk"]}`)
	if !ok {
		t.Fatal("expected ok")
	}
	if len(items) != 1 || items[0]["trend"] != "A" {
		t.Errorf("unexpected items: %v", items)
	}
}

func TestParseJSONArrayWithProse(t *testing.T) {
	items, ok := ParseJSONArray("Here you go: [{\"trend\": \"A\"}] hope it helps")
	if !ok || len(items) != 1 {
		t.Fatalf("expected one item, got %v (ok=%v)", items, ok)
	}
}

func TestParseJSONArrayInvalid(t *testing.T) {
	for _, text := range []string{"", "no json here", `{"trend": "A"}`, `{"trends": "nope"}`} {
		if _, ok := ParseJSONArray(text); ok {
			t.Errorf("expected failure for %q", text)
		}
	}
}
