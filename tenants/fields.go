package tenants

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/serenize/snaker"
)

// Fields is a backend record keyed by canonical snake_case names, so that
// "sortOrder", "SortOrder", "sort_order" and "Sort Order" read the same.
type Fields struct {
	values  map[string]any
	compact map[string]any
}

func NewFields(raw map[string]any) Fields {
	f := Fields{
		values:  make(map[string]any, len(raw)),
		compact: make(map[string]any, len(raw)),
	}
	for k, v := range raw {
		key := canonicalKey(k)
		if key == "" {
			continue
		}
		if _, dup := f.values[key]; !dup {
			f.values[key] = v
		}
		ck := strings.ReplaceAll(key, "_", "")
		if _, dup := f.compact[ck]; !dup {
			f.compact[ck] = v
		}
	}
	return f
}

func canonicalKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	return strings.ToLower(snaker.CamelToSnake(k))
}

func (f Fields) lookup(key string) (any, bool) {
	if v, ok := f.values[key]; ok && v != nil {
		return v, true
	}
	v, ok := f.compact[strings.ReplaceAll(key, "_", "")]
	return v, ok && v != nil
}

// Has reports whether any alias is present with a non-null value.
func (f Fields) Has(aliases ...string) bool {
	for _, a := range aliases {
		if _, ok := f.lookup(a); ok {
			return true
		}
	}
	return false
}

// String returns the first non-empty alias, trimmed.
func (f Fields) String(aliases ...string) string {
	for _, a := range aliases {
		v, ok := f.lookup(a)
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

// Bool coerces boolean, numeric and string forms. Unknown or missing
// values yield def.
func (f Fields) Bool(def bool, aliases ...string) bool {
	for _, a := range aliases {
		v, ok := f.lookup(a)
		if !ok {
			continue
		}
		if b, ok := CoerceBool(v); ok {
			return b
		}
	}
	return def
}

// Int coerces numeric and numeric-string forms. ok is false when no alias
// holds a number.
func (f Fields) Int(aliases ...string) (int, bool) {
	for _, a := range aliases {
		v, ok := f.lookup(a)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			if !math.IsNaN(t) && !math.IsInf(t, 0) {
				return int(t), true
			}
		case int:
			return t, true
		case int64:
			return int(t), true
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				return int(n), true
			}
		}
	}
	return 0, false
}

// Active derives the soft-delete flag from isActive/active, falling back to
// a status column. Records without either are active.
func (f Fields) Active() bool {
	if f.Has("is_active", "active") {
		return f.Bool(true, "is_active", "active")
	}
	switch strings.ToUpper(f.String("status")) {
	case "INACTIVE", "DELETED", "DISABLED", "REMOVED":
		return false
	}
	return true
}

// CoerceBool reads true/false out of the forms spreadsheets produce.
func CoerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1", "on", "active":
			return true, true
		case "false", "no", "n", "0", "off", "inactive", "deleted":
			return false, true
		}
	}
	return false, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
