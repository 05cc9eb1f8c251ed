// Package search loads the derived artifacts into an immutable in-memory
// dataset and answers thread, token and free-text queries over it.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/contract"
	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/format"
	"github.com/hal9000y/mailthread/internal/store"
	"github.com/hal9000y/mailthread/internal/table"
	"github.com/hal9000y/mailthread/internal/thread"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrRowNotFound    = errors.New("row not found in thread")
)

// Source is the storage collaborator the dataset is loaded from. Values are
// returned undecoded so the contract validators can judge their shape.
type Source interface {
	Threads(ctx context.Context) (any, error)
	Edges(ctx context.Context) (any, error)
	SearchData(ctx context.Context) (any, error)
}

// Options tunes a loaded dataset.
type Options struct {
	Extractors *extract.Set
	MaxResults int
	Log        *zap.Logger
}

// ThreadInfo is a thread as stored in the threads artifact.
type ThreadInfo struct {
	ThreadID string   `json:"thread_id"`
	Members  []string `json:"members"`
	Subject  string   `json:"subject,omitempty"`
	Rows     []int    `json:"rows,omitempty"`
}

// Row is one search record.
type Row struct {
	Row        int               `json:"row"`
	MessageID  string            `json:"message_id"`
	ThreadID   string            `json:"thread_id"`
	Sender     string            `json:"sender,omitempty"`
	Recipients string            `json:"recipients,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body,omitempty"`
	Tokens     extract.Tokens    `json:"tokens"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Masked returns a copy of r with sender and recipient addresses masked.
func (r Row) Masked() Row {
	r.Sender = format.MaskEmails(r.Sender)
	r.Recipients = format.MaskEmails(r.Recipients)
	return r
}

// Stats counts the loaded items.
type Stats struct {
	Threads int `json:"threads"`
	Edges   int `json:"edges"`
	Rows    int `json:"rows"`
}

// Dataset is a validated, read-only snapshot of the artifacts. All methods
// are safe for concurrent use.
type Dataset struct {
	threads  []ThreadInfo
	threadAt map[string]int

	edges         []thread.Edge
	threadEdges   map[string][]thread.Edge
	forest        *thread.Forest
	rows          []Row
	rowAt         map[int]int
	threadRowIdxs map[string][]int
	rowThread     map[int]string

	set        *extract.Set
	maxResults int
}

// Load reads the three artifacts from src, validates them and builds the
// dataset. Any failure aborts the load: no partial dataset is returned.
func Load(ctx context.Context, src Source, opts Options) (*Dataset, error) {
	if opts.Extractors == nil {
		opts.Extractors = extract.DefaultSet()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultLimit
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	rawThreads, err := src.Threads(ctx)
	if err != nil {
		return nil, fmt.Errorf("src.Threads failed: %w", err)
	}
	rawEdges, err := src.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("src.Edges failed: %w", err)
	}
	rawSearch, err := src.SearchData(ctx)
	if err != nil {
		return nil, fmt.Errorf("src.SearchData failed: %w", err)
	}

	if err := contract.AssertThreads(rawThreads); err != nil {
		return nil, err
	}
	if err := contract.AssertEdges(rawEdges); err != nil {
		return nil, err
	}
	if err := contract.AssertSearchData(rawSearch); err != nil {
		return nil, err
	}

	d := &Dataset{
		threadAt:      make(map[string]int),
		threadEdges:   make(map[string][]thread.Edge),
		rowAt:         make(map[int]int),
		threadRowIdxs: make(map[string][]int),
		rowThread:     make(map[int]string),
		set:           opts.Extractors,
		maxResults:    opts.MaxResults,
	}

	if err := d.loadThreads(rawThreads); err != nil {
		return nil, err
	}
	if err := d.loadRows(rawSearch.(*table.Table)); err != nil {
		return nil, err
	}
	if err := d.loadEdges(rawEdges.(*table.Table)); err != nil {
		return nil, err
	}

	opts.Log.Info("dataset loaded",
		zap.Int("threads", len(d.threads)),
		zap.Int("edges", len(d.edges)),
		zap.Int("rows", len(d.rows)))

	return d, nil
}

func (d *Dataset) loadThreads(raw any) error {
	var items []map[string]any
	switch list := raw.(type) {
	case []any:
		for _, item := range list {
			items = append(items, item.(map[string]any))
		}
	case []map[string]any:
		items = list
	}

	for i, m := range items {
		info, err := decodeThread(m)
		if err != nil {
			return &contract.SchemaError{Artifact: contract.ArtifactThreads, Msg: fmt.Sprintf("element %d: %s", i, err)}
		}
		if _, dup := d.threadAt[info.ThreadID]; dup {
			return &contract.SchemaError{Artifact: contract.ArtifactThreads, Msg: fmt.Sprintf("element %d: duplicate thread_id %q", i, info.ThreadID)}
		}

		d.threadAt[info.ThreadID] = len(d.threads)
		d.threads = append(d.threads, info)

		for _, row := range info.Rows {
			d.rowThread[row] = info.ThreadID
		}
	}

	return nil
}

func decodeThread(m map[string]any) (ThreadInfo, error) {
	var info ThreadInfo

	id, ok := m["thread_id"].(string)
	if !ok || id == "" {
		return info, fmt.Errorf("thread_id must be a non-empty string")
	}
	info.ThreadID = id

	members, ok := m["members"].([]any)
	if !ok && m["members"] != nil {
		return info, fmt.Errorf("members must be a list")
	}
	for _, member := range members {
		s, ok := member.(string)
		if !ok {
			return info, fmt.Errorf("members must hold message ids")
		}
		info.Members = append(info.Members, s)
	}

	info.Subject, _ = m["subject"].(string)

	if rows, ok := m["rows"].([]any); ok {
		for _, r := range rows {
			f, ok := r.(float64)
			if !ok {
				return info, fmt.Errorf("rows must hold row numbers")
			}
			info.Rows = append(info.Rows, int(f))
		}
	}

	return info, nil
}

func (d *Dataset) loadRows(t *table.Table) error {
	memberThread := make(map[string]string)
	for _, th := range d.threads {
		for _, m := range th.Members {
			memberThread[m] = th.ThreadID
		}
	}

	known := make(map[string]struct{}, len(t.Columns))
	for _, col := range store.SearchColumns {
		known[col] = struct{}{}
	}

	for i, values := range t.Rows {
		r := Row{
			Row:        i,
			MessageID:  t.Get(i, store.ColMessageID),
			ThreadID:   t.Get(i, store.ColThreadID),
			Sender:     t.Get(i, store.ColSender),
			Recipients: t.Get(i, store.ColRecipients),
			Timestamp:  t.Get(i, store.ColTimestamp),
			Subject:    t.Get(i, store.ColSubject),
			Body:       t.Get(i, store.ColBody),
			Tokens: extract.Tokens{
				PO:     splitTokens(t.Get(i, store.ColPO)),
				Phases: splitTokens(t.Get(i, store.ColPhases)),
				Sites:  splitTokens(t.Get(i, store.ColSites)),
			},
		}

		if v := t.Get(i, store.ColRow); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &contract.SchemaError{Artifact: contract.ArtifactSearch, Msg: fmt.Sprintf("row %d: %s %q is not an integer", i, store.ColRow, v)}
			}
			r.Row = n
		}
		if _, dup := d.rowAt[r.Row]; dup {
			return &contract.SchemaError{Artifact: contract.ArtifactSearch, Msg: fmt.Sprintf("row %d: duplicate row number %d", i, r.Row)}
		}
		if r.ThreadID == "" {
			r.ThreadID = memberThread[r.MessageID]
		}

		for c, col := range t.Columns {
			if _, ok := known[col]; ok {
				continue
			}
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[col] = values[c]
		}

		d.rowAt[r.Row] = len(d.rows)
		d.rows = append(d.rows, r)
		if r.ThreadID != "" {
			d.threadRowIdxs[r.ThreadID] = append(d.threadRowIdxs[r.ThreadID], len(d.rows)-1)
			if _, ok := d.rowThread[r.Row]; !ok {
				d.rowThread[r.Row] = r.ThreadID
			}
		}
	}

	return nil
}

func (d *Dataset) loadEdges(t *table.Table) error {
	for i := range t.Rows {
		e := thread.Edge{ThreadID: t.Get(i, store.ColThreadID)}

		var err error
		if e.ParentRow, err = strconv.Atoi(strings.TrimSpace(t.Get(i, store.ColParentRow))); err != nil {
			return &contract.SchemaError{Artifact: contract.ArtifactEdges, Msg: fmt.Sprintf("row %d: parent_row is not an integer", i)}
		}
		if e.ChildRow, err = strconv.Atoi(strings.TrimSpace(t.Get(i, store.ColChildRow))); err != nil {
			return &contract.SchemaError{Artifact: contract.ArtifactEdges, Msg: fmt.Sprintf("row %d: child_row is not an integer", i)}
		}

		for _, row := range []int{e.ParentRow, e.ChildRow} {
			owner, ok := d.rowThread[row]
			if !ok {
				return &contract.SchemaError{Artifact: contract.ArtifactEdges, Msg: fmt.Sprintf("row %d: row %d has no search record", i, row)}
			}
			if owner != e.ThreadID {
				return &contract.SchemaError{Artifact: contract.ArtifactEdges, Msg: fmt.Sprintf("row %d: row %d belongs to thread %s, not %s", i, row, owner, e.ThreadID)}
			}
		}

		d.edges = append(d.edges, e)
		d.threadEdges[e.ThreadID] = append(d.threadEdges[e.ThreadID], e)
	}

	if err := thread.CheckForest(d.edges); err != nil {
		return fmt.Errorf("thread.CheckForest failed: %w", err)
	}

	d.forest = thread.NewForest(d.edges)

	return nil
}

func splitTokens(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}

	var out []string
	for _, tok := range strings.Split(cell, store.TokenSep) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Stats returns the number of loaded threads, edges and rows.
func (d *Dataset) Stats() Stats {
	return Stats{Threads: len(d.threads), Edges: len(d.edges), Rows: len(d.rows)}
}
