package extract

import "strings"

var truthyTokens = map[string]struct{}{
	"selected":        {},
	"checked":         {},
	"yes":             {},
	"true":            {},
	"checkbox filled": {},
	"filled":          {},
}

// Truthy normalizes a raw model value for a flag field. Strings match the
// truthy token set case-insensitively; lists are true when any string
// element matches; bools pass through. Anything else is false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return isTruthyToken(x)
	case []string:
		for _, s := range x {
			if isTruthyToken(s) {
				return true
			}
		}
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && isTruthyToken(s) {
				return true
			}
		}
	}
	return false
}

func isTruthyToken(s string) bool {
	_, ok := truthyTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
