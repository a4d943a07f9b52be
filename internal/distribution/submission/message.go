package submission

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ExtractMessage pulls the operator-facing text out of a backend error body:
// a JSON string, {message}, {error}, or {errors} as an array or map. Anything
// else is returned as raw text, and an empty body yields fallback.
func ExtractMessage(body []byte, fallback string) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return fallback
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}

	switch v := decoded.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case []interface{}:
		if s := joinMessages(v); s != "" {
			return s
		}
	case map[string]interface{}:
		if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
		switch errs := v["errors"].(type) {
		case []interface{}:
			if s := joinMessages(errs); s != "" {
				return s
			}
		case map[string]interface{}:
			if s := joinFieldMessages(errs); s != "" {
				return s
			}
		case string:
			if strings.TrimSpace(errs) != "" {
				return errs
			}
		}
		if s, ok := v["error"].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return raw
}

func joinMessages(items []interface{}) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s := messageOf(it); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

func joinFieldMessages(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := messageOf(m[k]); s != "" {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, "; ")
}

func messageOf(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		return joinMessages(t)
	case map[string]interface{}:
		for _, k := range []string{"message", "defaultMessage", "error"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
		raw, _ := json.Marshal(t)
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}
