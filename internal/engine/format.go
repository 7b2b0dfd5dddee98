package engine

import "github.com/sans-lang/sans/internal/value"

// FormatDef is a registered named value map, as produced by a "format" step
// (proc format's value statement). put(v, $name.) looks values up here.
type FormatDef struct {
	Name    string
	Mapping map[string]string
	Other   string
	HasOther bool
}

func newFormatDef(name string, mapping []any, other string, hasOther bool) *FormatDef {
	f := &FormatDef{Name: name, Mapping: map[string]string{}, Other: other, HasOther: hasOther}
	for _, m := range mapping {
		entry := m.(map[string]any)
		key, _ := entry["key"].(string)
		val, _ := entry["value"].(string)
		f.Mapping[key] = val
	}
	return f
}

// Put maps v through the format, returning the mapped string, the other
// default, or ok=false for SANS_RUNTIME_FORMAT_UNDEFINED.
func (f *FormatDef) Put(v value.Value) (string, bool) {
	if s, ok := f.Mapping[v.Text()]; ok {
		return s, true
	}
	if f.HasOther {
		return f.Other, true
	}
	return "", false
}
