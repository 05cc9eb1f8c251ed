package thread

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSelfLoop        = errors.New("edge is a self loop")
	ErrMultipleParents = errors.New("row has more than one parent")
	ErrCycle           = errors.New("edges form a cycle")
)

// Forest indexes edges by row for tree walks. Rows are unique across the
// whole dataset, so edges of every thread can share one Forest.
type Forest struct {
	parent   map[int]int
	children map[int][]int
}

// NewForest indexes edges. When a row appears as child more than once the
// first edge wins; CheckForest reports such input.
func NewForest(edges []Edge) *Forest {
	f := &Forest{
		parent:   make(map[int]int, len(edges)),
		children: make(map[int][]int),
	}

	for _, e := range edges {
		if _, ok := f.parent[e.ChildRow]; ok {
			continue
		}
		f.parent[e.ChildRow] = e.ParentRow
		f.children[e.ParentRow] = append(f.children[e.ParentRow], e.ChildRow)
	}

	for row := range f.children {
		slices.Sort(f.children[row])
	}

	return f
}

// Parent returns the direct parent of row.
func (f *Forest) Parent(row int) (int, bool) {
	p, ok := f.parent[row]
	return p, ok
}

// Children returns the direct replies to row in row order.
func (f *Forest) Children(row int) []int {
	return slices.Clone(f.children[row])
}

// Ancestors returns the parent chain of row, nearest first.
func (f *Forest) Ancestors(row int) []int {
	var out []int
	seen := map[int]struct{}{row: {}}

	for cur, ok := f.Parent(row); ok; cur, ok = f.Parent(cur) {
		if _, loop := seen[cur]; loop {
			break
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
	}

	return out
}

// Descendants returns every row below row, breadth first and in row order
// within a level.
func (f *Forest) Descendants(row int) []int {
	var out []int
	seen := map[int]struct{}{row: {}}
	queue := []int{row}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, c := range f.Children(cur) {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
			queue = append(queue, c)
		}
	}

	return out
}

// CheckForest verifies that edges contain no self loop, give no row two
// parents and contain no cycle.
func CheckForest(edges []Edge) error {
	parent := make(map[int]int, len(edges))

	for _, e := range edges {
		if e.ParentRow == e.ChildRow {
			return fmt.Errorf("thread %s row %d: %w", e.ThreadID, e.ChildRow, ErrSelfLoop)
		}
		if p, ok := parent[e.ChildRow]; ok && p != e.ParentRow {
			return fmt.Errorf("thread %s row %d: %w", e.ThreadID, e.ChildRow, ErrMultipleParents)
		}
		parent[e.ChildRow] = e.ParentRow
	}

	// 0 unvisited, 1 on the current walk, 2 known to reach a root.
	state := make(map[int]int, len(parent))
	for start := range parent {
		var path []int
		cur := start
		for {
			if state[cur] == 2 {
				break
			}
			if state[cur] == 1 {
				return fmt.Errorf("row %d: %w", cur, ErrCycle)
			}
			state[cur] = 1
			path = append(path, cur)

			p, ok := parent[cur]
			if !ok {
				break
			}
			cur = p
		}
		for _, row := range path {
			state[row] = 2
		}
	}

	return nil
}
