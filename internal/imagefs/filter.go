package imagefs

import (
	"path/filepath"
	"strings"
)

type FilterMode string

const (
	FilterContains   FilterMode = "contains"
	FilterStartsWith FilterMode = "starts with"
	FilterEndsWith   FilterMode = "ends with"
	FilterExtension  FilterMode = "extension"
)

var FilterModes = []FilterMode{FilterContains, FilterStartsWith, FilterEndsWith, FilterExtension}

// Filter narrows a listing by file name. An empty Value matches everything.
// Matching is case-insensitive.
type Filter struct {
	Mode  FilterMode
	Value string
}

// Apply keeps the paths whose base name matches f, preserving order.
func (f Filter) Apply(paths []string) []string {
	if strings.TrimSpace(f.Value) == "" {
		return paths
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.Match(filepath.Base(p)) {
			out = append(out, p)
		}
	}
	return out
}

func (f Filter) Match(name string) bool {
	v := strings.ToLower(strings.TrimSpace(f.Value))
	if v == "" {
		return true
	}
	n := strings.ToLower(name)

	switch f.Mode {
	case FilterStartsWith:
		return strings.HasPrefix(n, v)
	case FilterEndsWith:
		return strings.HasSuffix(strings.TrimSuffix(n, filepath.Ext(n)), v)
	case FilterExtension:
		if !strings.HasPrefix(v, ".") {
			v = "." + v
		}
		return filepath.Ext(n) == v
	default:
		return strings.Contains(n, v)
	}
}
