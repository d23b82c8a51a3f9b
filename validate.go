package blockhtml

import "encoding/json"

// IsValidDocument reports whether input parses as JSON and the top-level
// value is an object. Arrays, primitives and null are rejected.
func IsValidDocument(input string) bool {
	var v any
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		return false
	}
	_, ok := v.(map[string]any)
	return ok
}
