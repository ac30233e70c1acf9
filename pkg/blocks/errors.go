package blocks

import (
	"sort"
	"strings"
)

// ValidationError reports the properties rejected by an edit, keyed by property
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid properties: " + strings.Join(parts, "; ")
}
