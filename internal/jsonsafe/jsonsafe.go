// Package jsonsafe converts values into a form that encoding/json can always
// serialize: NaN and the infinities have no JSON representation, so they are
// replaced with explicit nulls rather than failing the whole response.
package jsonsafe

import "math"

// Sanitize walks v and replaces every non-finite float with nil, recursing
// through maps and slices. All other values pass through unchanged.
func Sanitize(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		return Sanitize(float64(t))
	case *float64:
		if t == nil {
			return nil
		}
		return Sanitize(*t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	default:
		return v
	}
}

// Records sanitizes a slice of record maps.
func Records(records []map[string]any) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = Sanitize(map[string]any(r)).(map[string]any)
	}
	return out
}
