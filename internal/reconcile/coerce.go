package reconcile

import (
	"strconv"
	"strings"
)

// toFloat64 attempts to convert an any value to float64. Numeric strings
// are accepted because upstream branches are inconsistent about quoting.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func toString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// toSlice returns v as []any if it is a JSON array.
func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// toMap returns v as a JSON object.
func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// firstString returns the first non-empty string among the given keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := toString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// toStringSlice flattens a JSON array into its string elements, skipping
// anything that isn't a string.
func toStringSlice(v any) []string {
	raw, ok := toSlice(v)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s := toString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
