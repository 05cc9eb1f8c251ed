// Package pipeline turns raw message records into the threads, edges and
// search artifacts.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/format"
	"github.com/hal9000y/mailthread/internal/store"
	"github.com/hal9000y/mailthread/internal/table"
	"github.com/hal9000y/mailthread/internal/thread"
)

// Report summarizes a build.
type Report struct {
	Messages int
	Threads  int
	Edges    int
	Rejected []thread.Rejected
	// NoThread counts records written without a thread id. The search
	// dataset refuses to load such rows.
	NoThread int
}

// Builder runs normalize, extract and assemble over a batch of records.
type Builder struct {
	set *extract.Set
	log *zap.Logger
}

// NewBuilder returns a Builder using the given extractors.
func NewBuilder(set *extract.Set, log *zap.Logger) *Builder {
	return &Builder{set: set, log: log}
}

// Build derives all artifacts from records. Records are not modified.
func (b *Builder) Build(records []thread.Record) (*store.Artifacts, Report, error) {
	res := thread.Assemble(records)

	for _, r := range res.Rejected {
		b.log.Warn("parent reference dropped",
			zap.String("thread_id", r.Edge.ThreadID),
			zap.Int("parent_row", r.Edge.ParentRow),
			zap.Int("child_row", r.Edge.ChildRow),
			zap.String("reason", string(r.Reason)))
	}

	edges := table.New(store.EdgeColumns...)
	for _, e := range res.Edges {
		if err := edges.Append(e.ThreadID, strconv.Itoa(e.ParentRow), strconv.Itoa(e.ChildRow)); err != nil {
			return nil, Report{}, fmt.Errorf("edges.Append failed: %w", err)
		}
	}

	report := Report{
		Messages: len(records),
		Threads:  len(res.Threads),
		Edges:    len(res.Edges),
		Rejected: res.Rejected,
	}

	search := table.New(store.SearchColumns...)
	for row, rec := range records {
		if rec.ThreadID == "" {
			report.NoThread++
			b.log.Warn("record has no thread id",
				zap.Int("row", row),
				zap.String("message_id", rec.MessageID))
		}
		if err := search.Append(b.searchRow(row, rec)...); err != nil {
			return nil, Report{}, fmt.Errorf("search.Append failed: %w", err)
		}
	}

	b.log.Info("build finished",
		zap.Int("messages", report.Messages),
		zap.Int("threads", report.Threads),
		zap.Int("edges", report.Edges),
		zap.Int("rejected", len(report.Rejected)),
		zap.Int("no_thread", report.NoThread))

	return &store.Artifacts{Threads: res.Threads, Edges: edges, Search: search}, report, nil
}

// Tokens extracts the tokens of one record from its subject and normalized
// body.
func (b *Builder) Tokens(rec thread.Record) extract.Tokens {
	return b.set.Extract(tokenText(rec))
}

func (b *Builder) searchRow(row int, rec thread.Record) []string {
	body := format.Normalize(rec.Body)
	tokens := b.Tokens(rec)

	ts := ""
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.UTC().Format(time.RFC3339)
	}

	return []string{
		strconv.Itoa(row),
		rec.MessageID,
		rec.ThreadID,
		rec.Sender,
		strings.Join(rec.Recipients, store.RecipientSep),
		ts,
		format.NormalizeString(rec.Subject),
		body,
		strings.Join(tokens.PO, store.TokenSep),
		strings.Join(tokens.Phases, store.TokenSep),
		strings.Join(tokens.Sites, store.TokenSep),
	}
}

func tokenText(rec thread.Record) string {
	subject := format.NormalizeString(rec.Subject)
	body := format.Normalize(rec.Body)

	if subject == "" {
		return body
	}
	return subject + "\n" + body
}
