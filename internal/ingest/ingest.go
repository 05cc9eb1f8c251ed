// Package ingest produces raw message records for the pipeline from a JSON
// records file, a directory of .eml files or a Gmail account.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hal9000y/mailthread/internal/thread"
)

// Source yields records in row order.
type Source interface {
	Records(ctx context.Context) ([]thread.Record, error)
}

// JSONFile reads a JSON array of records.
type JSONFile struct {
	Path string
}

// Records implements Source.
func (j JSONFile) Records(_ context.Context) ([]thread.Record, error) {
	f, err := os.Open(j.Path)
	if err != nil {
		return nil, fmt.Errorf("os.Open failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadJSON(f)
}

// ReadJSON decodes a JSON array of records.
func ReadJSON(r io.Reader) ([]thread.Record, error) {
	var records []thread.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("json.Decode failed: %w", err)
	}
	return records, nil
}

// WriteJSONFile stores records as an indented JSON array, creating parent
// directories as needed.
func WriteJSONFile(path string, records []thread.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll failed: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create failed: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []thread.Record{}
	}
	if err := enc.Encode(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("json.Encode failed: %w", err)
	}

	return f.Close()
}

// sortRecords orders parsed messages by time, then message id, so that rows
// are stable across runs.
func sortRecords(records []thread.Record) {
	slices.SortStableFunc(records, func(a, b thread.Record) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.MessageID, b.MessageID)
	})
}
