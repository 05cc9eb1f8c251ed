package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/thread"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	fuzzyBodyPreview = 200
)

// ThreadView is a thread with its member records and reply edges.
type ThreadView struct {
	Thread   ThreadInfo    `json:"thread"`
	Messages []Row         `json:"messages"`
	Edges    []thread.Edge `json:"edges"`
}

// Query selects search records. Non-empty filters are combined.
type Query struct {
	// Text matches case-insensitively against subject, body, sender and
	// recipients.
	Text string
	// Token is a purchase order, phase or site token in any spelling the
	// extractors accept, e.g. "lpo 12345".
	Token    string
	ThreadID string
	// Fuzzy ranks Text matches with subsequence matching instead of
	// requiring a substring.
	Fuzzy bool
	Limit int
}

// Hit is one matching record.
type Hit struct {
	Row   Row `json:"row"`
	Score int `json:"score,omitempty"`
}

// Thread returns the thread with its member records in row order and its
// edges.
func (d *Dataset) Thread(id string) (ThreadView, error) {
	i, ok := d.threadAt[id]
	if !ok {
		return ThreadView{}, fmt.Errorf("thread %q: %w", id, ErrThreadNotFound)
	}

	view := ThreadView{
		Thread:   d.threads[i],
		Messages: make([]Row, 0, len(d.threadRowIdxs[id])),
		Edges:    slices.Clone(d.threadEdges[id]),
	}
	for _, idx := range d.threadRowIdxs[id] {
		view.Messages = append(view.Messages, d.rows[idx])
	}

	return view, nil
}

// Search returns the records matching q. Substring matches come back in row
// order, fuzzy matches by descending score.
func (d *Dataset) Search(q Query) []Hit {
	limit := q.Limit
	if limit <= 0 {
		limit = d.maxResults
	}
	limit = min(limit, maxLimit)

	candidates := d.candidates(q.ThreadID)
	candidates = d.filterToken(candidates, q.Token)

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return d.hits(candidates, limit)
	}

	if q.Fuzzy {
		return d.fuzzyHits(candidates, text, limit)
	}

	needle := strings.ToLower(text)
	matched := candidates[:0:0]
	for _, idx := range candidates {
		if containsText(d.rows[idx], needle) {
			matched = append(matched, idx)
		}
	}

	return d.hits(matched, limit)
}

func (d *Dataset) candidates(threadID string) []int {
	if threadID != "" {
		return slices.Clone(d.threadRowIdxs[threadID])
	}

	idxs := make([]int, len(d.rows))
	for i := range d.rows {
		idxs[i] = i
	}
	return idxs
}

func (d *Dataset) filterToken(idxs []int, token string) []int {
	token = strings.TrimSpace(token)
	if token == "" {
		return idxs
	}

	field, canonical, ok := d.set.Canonical(token)
	if !ok {
		canonical = strings.ToUpper(token)
	}

	out := idxs[:0:0]
	for _, idx := range idxs {
		t := d.rows[idx].Tokens
		var hit bool
		switch field {
		case extract.FieldPO:
			hit = slices.Contains(t.PO, canonical)
		case extract.FieldPhase:
			hit = slices.Contains(t.Phases, canonical)
		case extract.FieldSite:
			hit = slices.Contains(t.Sites, canonical)
		default:
			hit = slices.Contains(t.PO, canonical) || slices.Contains(t.Phases, canonical) || slices.Contains(t.Sites, canonical)
		}
		if hit {
			out = append(out, idx)
		}
	}

	return out
}

func containsText(r Row, needle string) bool {
	for _, field := range []string{r.Subject, r.Body, r.Sender, r.Recipients} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (d *Dataset) hits(idxs []int, limit int) []Hit {
	if len(idxs) > limit {
		idxs = idxs[:limit]
	}

	out := make([]Hit, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, Hit{Row: d.rows[idx]})
	}
	return out
}

// fuzzySource adapts candidate rows to fuzzy.Source.
type fuzzySource struct {
	rows []Row
	idxs []int
}

func (s fuzzySource) String(i int) string {
	r := s.rows[s.idxs[i]]
	body := []rune(r.Body)
	if len(body) > fuzzyBodyPreview {
		body = body[:fuzzyBodyPreview]
	}
	return r.Subject + " " + r.Sender + " " + string(body)
}

func (s fuzzySource) Len() int {
	return len(s.idxs)
}

func (d *Dataset) fuzzyHits(idxs []int, text string, limit int) []Hit {
	matches := fuzzy.FindFrom(text, fuzzySource{rows: d.rows, idxs: idxs})

	out := make([]Hit, 0, min(len(matches), limit))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, Hit{Row: d.rows[idxs[m.Index]], Score: m.Score})
	}
	return out
}

// Ancestors returns the reply chain above row, nearest parent first.
func (d *Dataset) Ancestors(threadID string, row int) ([]Row, error) {
	if err := d.checkMember(threadID, row); err != nil {
		return nil, err
	}
	return d.rowsOf(d.forest.Ancestors(row)), nil
}

// Descendants returns every reply below row, breadth first.
func (d *Dataset) Descendants(threadID string, row int) ([]Row, error) {
	if err := d.checkMember(threadID, row); err != nil {
		return nil, err
	}
	return d.rowsOf(d.forest.Descendants(row)), nil
}

func (d *Dataset) checkMember(threadID string, row int) error {
	if _, ok := d.threadAt[threadID]; !ok {
		return fmt.Errorf("thread %q: %w", threadID, ErrThreadNotFound)
	}
	if owner, ok := d.rowThread[row]; !ok || owner != threadID {
		return fmt.Errorf("thread %q row %d: %w", threadID, row, ErrRowNotFound)
	}
	return nil
}

// rowsOf maps row numbers to records. Load guarantees every edge endpoint
// has a record.
func (d *Dataset) rowsOf(rows []int) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, d.rows[d.rowAt[row]])
	}
	return out
}
