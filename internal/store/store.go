// Package store reads and writes the three derived artifacts: the threads
// list, the edges table and the search table.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/table"
	"github.com/hal9000y/mailthread/internal/thread"
)

// Artifacts is the output of a build.
type Artifacts struct {
	Threads []thread.Thread
	Edges   *table.Table
	Search  *table.Table
}

// Dir keeps artifacts as files under the configured data root.
type Dir struct {
	cfg config.DataConfig
	log *zap.Logger
}

// NewDir returns a Dir for cfg.
func NewDir(cfg config.DataConfig, log *zap.Logger) *Dir {
	return &Dir{cfg: cfg, log: log}
}

// Threads decodes the threads artifact without assuming its shape; the
// contract validators decide whether it is usable.
func (d *Dir) Threads(_ context.Context) (any, error) {
	f, err := os.Open(d.cfg.Path(d.cfg.ThreadsFile))
	if err != nil {
		return nil, fmt.Errorf("os.Open failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	var v any
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("json.Decode(%s) failed: %w", d.cfg.ThreadsFile, err)
	}

	return v, nil
}

// Edges reads the edges table.
func (d *Dir) Edges(_ context.Context) (any, error) {
	return d.readTable(d.cfg.EdgesFile)
}

// SearchData reads the search table.
func (d *Dir) SearchData(_ context.Context) (any, error) {
	return d.readTable(d.cfg.SearchFile)
}

func (d *Dir) readTable(name string) (*table.Table, error) {
	f, err := os.Open(d.cfg.Path(name))
	if err != nil {
		return nil, fmt.Errorf("os.Open failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := table.ReadCSV(f, d.cfg.Encodings)
	if err != nil {
		return nil, fmt.Errorf("table.ReadCSV(%s) failed: %w", name, err)
	}

	return t, nil
}

// Write stores all three artifacts. Each file is written to a temporary
// name first and renamed into place.
func (d *Dir) Write(_ context.Context, a *Artifacts) error {
	if err := os.MkdirAll(d.cfg.Root, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll failed: %w", err)
	}

	threads := a.Threads
	if threads == nil {
		threads = []thread.Thread{}
	}

	steps := []struct {
		name  string
		write func(io.Writer) error
	}{
		{name: d.cfg.ThreadsFile, write: func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(threads)
		}},
		{name: d.cfg.EdgesFile, write: a.Edges.WriteCSV},
		{name: d.cfg.SearchFile, write: a.Search.WriteCSV},
	}

	for _, s := range steps {
		if err := d.writeFile(s.name, s.write); err != nil {
			return fmt.Errorf("write %s failed: %w", s.name, err)
		}
		d.log.Debug("artifact written", zap.String("path", d.cfg.Path(s.name)))
	}

	return nil
}

func (d *Dir) writeFile(name string, write func(io.Writer) error) error {
	path := d.cfg.Path(name)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp failed: %w", err)
	}
	defer func() {
		if _, err := os.Stat(tmp.Name()); err == nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("os.Rename failed: %w", err)
	}

	return nil
}

// Memory serves artifacts that are already decoded. It is used by tests and
// by callers that build and query in one process.
type Memory struct {
	ThreadsValue any
	EdgesValue   any
	SearchValue  any
}

// NewMemory wraps built artifacts. Threads are passed through a JSON round
// trip so the validators see the same shape a file would produce.
func NewMemory(a *Artifacts) (*Memory, error) {
	threadList := a.Threads
	if threadList == nil {
		threadList = []thread.Thread{}
	}

	raw, err := json.Marshal(threadList)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal failed: %w", err)
	}

	var threads any
	if err := json.Unmarshal(raw, &threads); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}

	return &Memory{ThreadsValue: threads, EdgesValue: a.Edges, SearchValue: a.Search}, nil
}

// Threads returns the threads value.
func (m *Memory) Threads(context.Context) (any, error) { return m.ThreadsValue, nil }

// Edges returns the edges value.
func (m *Memory) Edges(context.Context) (any, error) { return m.EdgesValue, nil }

// SearchData returns the search value.
func (m *Memory) SearchData(context.Context) (any, error) { return m.SearchValue, nil }
