// Package contract guards the shape of loaded artifacts before they reach
// the query layer.
package contract

import (
	"fmt"
	"strings"

	"github.com/hal9000y/mailthread/internal/table"
)

// Artifact names used in SchemaError.
const (
	ArtifactThreads = "threads"
	ArtifactEdges   = "edges"
	ArtifactSearch  = "search"
)

// Required keys and columns.
var (
	ThreadKeys  = []string{"thread_id", "members"}
	EdgeColumns = []string{"thread_id", "parent_row", "child_row"}
)

// SchemaError reports an artifact whose shape does not match its contract.
type SchemaError struct {
	Artifact string
	Missing  []string
	Msg      string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s schema: %s", e.Artifact, e.Msg)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing: %s)", strings.Join(e.Missing, ", "))
	}
	return b.String()
}

// AssertThreads checks that v is a sequence of mappings that each carry
// thread_id and members. Every element is checked, not only the first one.
func AssertThreads(v any) error {
	var items []any

	switch list := v.(type) {
	case []any:
		items = list
	case []map[string]any:
		items = make([]any, len(list))
		for i, m := range list {
			items[i] = m
		}
	default:
		return &SchemaError{Artifact: ArtifactThreads, Msg: fmt.Sprintf("expected a list of thread objects, got %T", v)}
	}

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return &SchemaError{Artifact: ArtifactThreads, Msg: fmt.Sprintf("element %d: expected an object, got %T", i, item)}
		}

		var missing []string
		for _, key := range ThreadKeys {
			if _, ok := m[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return &SchemaError{
				Artifact: ArtifactThreads,
				Missing:  missing,
				Msg:      fmt.Sprintf("element %d lacks required keys", i),
			}
		}
	}

	return nil
}

// AssertEdges checks that v is a table with the edge columns.
func AssertEdges(v any) error {
	t, ok := v.(*table.Table)
	if !ok || t == nil {
		return &SchemaError{Artifact: ArtifactEdges, Msg: fmt.Sprintf("expected a table, got %T", v)}
	}

	if missing := t.Missing(EdgeColumns...); len(missing) > 0 {
		return &SchemaError{Artifact: ArtifactEdges, Missing: missing, Msg: "table lacks required columns"}
	}

	return nil
}

// AssertSearchData checks that v is a table. Any columns are accepted.
func AssertSearchData(v any) error {
	if t, ok := v.(*table.Table); !ok || t == nil {
		return &SchemaError{Artifact: ArtifactSearch, Msg: fmt.Sprintf("expected a table, got %T", v)}
	}

	return nil
}
