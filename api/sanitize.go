package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// marshalSanitized serializes body as JSON with every string leaf trimmed.
// Objects and arrays are walked structurally; non-string values pass
// through unchanged.
func marshalSanitized(body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("reparse body: %w", err)
	}

	raw, err = json.Marshal(sanitizeValue(tree))
	if err != nil {
		return nil, fmt.Errorf("marshal sanitized body: %w", err)
	}
	return raw, nil
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		for i := range v {
			v[i] = sanitizeValue(v[i])
		}
		return v
	case map[string]any:
		for key := range v {
			v[key] = sanitizeValue(v[key])
		}
		return v
	default:
		return value
	}
}
