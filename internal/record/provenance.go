package record

import "sort"

// Source tags which extraction stage produced a field's current value.
type Source string

const (
	SourceModel            Source = "model"
	SourceRegexFallback    Source = "regex-fallback"
	SourceLocationFallback Source = "location-fallback"
	SourceCheckboxFallback Source = "checkbox-fallback"
	SourceCheckboxOverride Source = "checkbox-override"
	SourceDefault          Source = "default"
	SourceUnset            Source = "unset"
)

// Provenance maps canonical field names to the source of their value.
type Provenance map[string]Source

// Get returns the source for name, or SourceUnset when never written.
func (p Provenance) Get(name string) Source {
	if s, ok := p[name]; ok {
		return s
	}
	return SourceUnset
}

// Complete returns a copy that lists every registered field, filling
// fields that were never written with SourceUnset.
func (p Provenance) Complete() map[string]Source {
	out := make(map[string]Source, len(registry))
	for _, f := range registry {
		out[f.Name] = p.Get(f.Name)
	}
	return out
}

// Counts returns how many fields each source produced, excluding unset.
func (p Provenance) Counts() map[Source]int {
	out := make(map[Source]int)
	for _, s := range p {
		out[s]++
	}
	return out
}

// FieldsFrom returns the sorted names of fields whose value came from src.
func (p Provenance) FieldsFrom(src Source) []string {
	var names []string
	for name, s := range p {
		if s == src {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
