package engine

import (
	"encoding/json"
	"log"
	"strings"
)

// ParseJSONObject parses a JSON response from the engine, handling markdown
// code fences and answers wrapped in a single-element array. Returns nil if
// the text is not a JSON object in any accepted shape.
func ParseJSONObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		log.Printf("Failed to parse engine response as JSON: %v", err)
		return nil
	}

	switch v := raw.(type) {
	case map[string]any:
		return v
	case []any:
		// Some engines wrap the answer in a single-element array.
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj
			}
		}
	}

	log.Printf("Engine response is JSON but not an object")
	return nil
}

// GetString extracts a string field from a parsed response, falling back
// when the key is missing or not a string.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}
