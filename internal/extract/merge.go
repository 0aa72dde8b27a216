package extract

import "github.com/jackzampolin/form32/internal/record"

// Merge folds src into dst without overwriting information. A key from src
// is written only when dst has no value for it or the current value is empty;
// nested maps are merged key by key under the same rule. dst is modified in
// place and returned.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		cur, ok := dst[k]
		if !ok || record.IsEmptyRaw(cur) {
			dst[k] = cloneValue(v)
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		srcMap, srcIsMap := v.(map[string]any)
		if curIsMap && srcIsMap {
			dst[k] = Merge(curMap, srcMap)
		}
	}
	return dst
}

// cloneValue copies nested maps so later merges never alias page results.
func cloneValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, inner := range m {
		out[k] = cloneValue(inner)
	}
	return out
}
