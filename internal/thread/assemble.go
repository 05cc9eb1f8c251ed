package thread

// Result is the output of Assemble.
type Result struct {
	Threads  []Thread
	Edges    []Edge
	Rejected []Rejected
}

// Assemble groups records by thread id and derives one edge per record whose
// parent reference is valid. A record's parent is its ParentRow when set,
// otherwise the record of the same thread whose MessageID equals InReplyTo.
//
// Threads are returned in first-seen order and edges follow thread order,
// then child row order. References that would leave the thread, point at the
// record itself or close a cycle are reported in Rejected and the record is
// treated as a root, so every thread's edges form a forest.
func Assemble(records []Record) Result {
	var order []string
	threads := make(map[string]*Thread)
	msgRows := make(map[string]map[string]int)

	for row, rec := range records {
		t, ok := threads[rec.ThreadID]
		if !ok {
			t = &Thread{ThreadID: rec.ThreadID, Subject: rec.Subject}
			threads[rec.ThreadID] = t
			msgRows[rec.ThreadID] = make(map[string]int)
			order = append(order, rec.ThreadID)
		}

		t.Members = append(t.Members, rec.MessageID)
		t.Rows = append(t.Rows, row)

		if ts := rec.Timestamp; !ts.IsZero() {
			if t.FirstAt.IsZero() || ts.Before(t.FirstAt) {
				t.FirstAt = ts
			}
			if ts.After(t.LastAt) {
				t.LastAt = ts
			}
		}

		if rec.MessageID != "" {
			if _, dup := msgRows[rec.ThreadID][rec.MessageID]; !dup {
				msgRows[rec.ThreadID][rec.MessageID] = row
			}
		}
	}

	parents := make([]int, len(records))
	for i := range parents {
		parents[i] = -1
	}

	res := Result{Threads: make([]Thread, 0, len(order))}

	for _, id := range order {
		t := threads[id]

		for _, row := range t.Rows {
			p, ok := parentRef(records[row], msgRows[id])
			if !ok {
				continue
			}

			e := Edge{ThreadID: id, ParentRow: p, ChildRow: row}
			if reason, bad := checkEdge(records, parents, e); bad {
				res.Rejected = append(res.Rejected, Rejected{Edge: e, Reason: reason})
				continue
			}

			parents[row] = p
			res.Edges = append(res.Edges, e)
		}

		for _, row := range t.Rows {
			if parents[row] == -1 {
				t.RootRows = append(t.RootRows, row)
			}
		}

		res.Threads = append(res.Threads, *t)
	}

	return res
}

func parentRef(rec Record, msgRows map[string]int) (int, bool) {
	if rec.ParentRow != nil {
		return *rec.ParentRow, true
	}
	if rec.InReplyTo == "" {
		return 0, false
	}

	p, ok := msgRows[rec.InReplyTo]
	return p, ok
}

func checkEdge(records []Record, parents []int, e Edge) (RejectReason, bool) {
	switch {
	case e.ParentRow < 0 || e.ParentRow >= len(records):
		return RejectOutOfRange, true
	case records[e.ParentRow].ThreadID != e.ThreadID:
		return RejectOtherThread, true
	case e.ParentRow == e.ChildRow:
		return RejectSelfLoop, true
	}

	// Accepted edges are acyclic and give each row one parent, so the walk
	// up from the new parent ends at a root unless it meets the child.
	for cur := e.ParentRow; cur != -1; cur = parents[cur] {
		if cur == e.ChildRow {
			return RejectCycle, true
		}
	}

	return "", false
}
