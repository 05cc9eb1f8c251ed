package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/thread"
)

type gmailSvc interface {
	ListMessageIDs(ctx context.Context, Q string, limit int64) ([]string, error)
	GetRawMessage(ctx context.Context, msgID string) (*gmail.Message, error)
}

// Gmail fetches the messages matching the configured query. Gmail's own
// thread id replaces the header derived one.
type Gmail struct {
	svc    gmailSvc
	cfg    config.GmailConfig
	parser Parser
	log    *zap.Logger
}

// NewGmail returns a Gmail source.
func NewGmail(svc gmailSvc, cfg config.GmailConfig, fallbacks []string, log *zap.Logger) *Gmail {
	return &Gmail{
		svc:    svc,
		cfg:    cfg,
		parser: Parser{Fallbacks: fallbacks, Log: log},
		log:    log,
	}
}

// Records implements Source.
func (g *Gmail) Records(ctx context.Context) ([]thread.Record, error) {
	ids, err := g.svc.ListMessageIDs(ctx, g.cfg.Query, g.cfg.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("svc.ListMessageIDs failed: %w", err)
	}

	records := make([]thread.Record, 0, len(ids))
	for _, id := range ids {
		msg, err := g.svc.GetRawMessage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("svc.GetRawMessage(%s) failed: %w", id, err)
		}

		rec, err := g.record(msg)
		if err != nil {
			g.log.Warn("skipping gmail message", zap.String("id", id), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	sortRecords(records)

	g.log.Info("gmail messages fetched", zap.String("query", g.cfg.Query), zap.Int("records", len(records)))

	return records, nil
}

func (g *Gmail) record(msg *gmail.Message) (thread.Record, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(msg.Raw, "="))
	if err != nil {
		return thread.Record{}, fmt.Errorf("base64.DecodeString failed: %w", err)
	}

	rec, err := g.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return thread.Record{}, err
	}

	if rec.MessageID == "" {
		rec.MessageID = msg.Id
	}
	if msg.ThreadId != "" {
		rec.ThreadID = msg.ThreadId
	}

	return rec, nil
}
