package record

import "strings"

// IsMissingValue reports whether v counts as "not extracted" for field f:
// nil, a blank string, a string made only of "|" separators, or for name
// fields a string that is blank once the separators are removed.
func IsMissingValue(f Field, v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return true
		}
		if strings.Trim(s, "|") == "" {
			return true
		}
		if f.Category == CategoryName && strings.TrimSpace(strings.ReplaceAll(s, "|", "")) == "" {
			return true
		}
	case []InjuryEvaluation:
		return len(x) == 0
	}
	return false
}

// IsEmptyRaw reports whether a raw model value carries no information:
// nil, an empty or blank string, or an empty list or map.
func IsEmptyRaw(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
