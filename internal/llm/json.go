package llm

import (
	"encoding/json"
	"strings"
)

// stripFences removes a surrounding markdown code block, if any.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// ParseJSONResponse parses a JSON object from an LLM response, handling
// markdown code blocks. It returns nil when no object can be decoded.
func ParseJSONResponse(text string) map[string]any {
	text = stripFences(text)
	if text == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result
	}

	// Models sometimes wrap the object in prose.
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil
	}
	return result
}

// ParseJSONArray parses a list of JSON objects from an LLM response. Besides
// a bare array it accepts an object holding the array under "trends" or
// "items", which is what JSON-mode models tend to emit. ok is false when
// nothing parseable was found; an empty array is a valid result.
func ParseJSONArray(text string) (items []map[string]any, ok bool) {
	text = stripFences(text)
	if text == "" {
		return nil, false
	}

	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, true
	}

	if obj := ParseJSONResponse(text); obj != nil {
		for _, key := range []string{"trends", "items"} {
			raw, present := obj[key]
			if !present {
				continue
			}
			arr, isArr := raw.([]any)
			if !isArr {
				return nil, false
			}
			for _, v := range arr {
				if m, isObj := v.(map[string]any); isObj {
					items = append(items, m)
				}
			}
			return items, true
		}
	}

	start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, false
	}
	return items, true
}
