package gateway

import (
	"fmt"
	"strings"
)

// Reply is a decoded backend response object. Field typing drifts between
// backend versions so accessors are lenient.
type Reply map[string]any

// String returns the value at key rendered as a trimmed string.
func (r Reply) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Object returns the nested object at the first present key.
func (r Reply) Object(keys ...string) map[string]any {
	for _, k := range keys {
		if obj, ok := r[k].(map[string]any); ok {
			return obj
		}
	}
	return nil
}

// List returns the array of objects at the first key holding an array.
// Non-object elements are skipped.
func (r Reply) List(keys ...string) []map[string]any {
	for _, k := range keys {
		raw, ok := r[k].([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}

// Has reports whether key is present with a non-null value.
func (r Reply) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "false", "0", "no", "":
			return false
		}
		return true
	case nil:
		return false
	}
	return true
}
