package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/thread"
)

// EMLDir reads every message file under the configured raw directory whose
// extension is allowed. Unparseable files are skipped with a warning.
type EMLDir struct {
	cfg    config.DataConfig
	parser Parser
	log    *zap.Logger
}

// NewEMLDir returns an EMLDir over cfg.RawDir.
func NewEMLDir(cfg config.DataConfig, log *zap.Logger) *EMLDir {
	return &EMLDir{
		cfg:    cfg,
		parser: Parser{Fallbacks: cfg.Encodings, Log: log},
		log:    log,
	}
}

// Records implements Source.
func (d *EMLDir) Records(ctx context.Context) ([]thread.Record, error) {
	root := d.cfg.Path(d.cfg.RawDir)

	var records []thread.Record
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if e.IsDir() || !d.cfg.AllowsExtension(e.Name()) {
			return nil
		}

		rec, err := d.parseFile(path)
		if err != nil {
			d.log.Warn("skipping message file", zap.String("path", path), zap.Error(err))
			return nil
		}
		records = append(records, rec)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filepath.WalkDir(%s) failed: %w", root, err)
	}

	sortRecords(records)

	d.log.Info("message files read", zap.String("dir", root), zap.Int("records", len(records)))

	return records, nil
}

func (d *EMLDir) parseFile(path string) (thread.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return thread.Record{}, fmt.Errorf("os.Open failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	rec, err := d.parser.Parse(f)
	if err != nil {
		return thread.Record{}, err
	}
	if rec.MessageID == "" {
		rec.MessageID = filepath.Base(path)
		if rec.ThreadID == "" {
			rec.ThreadID = rec.MessageID
		}
	}

	return rec, nil
}
