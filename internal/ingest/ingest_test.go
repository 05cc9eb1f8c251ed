package ingest_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/ingest"
	"github.com/hal9000y/mailthread/internal/thread"
)

func TestJSONFileRoundTrip(t *testing.T) {
	body := "Deliver to ZAK_x000D_Phase 1"
	parent := 0
	records := []thread.Record{
		{MessageID: "m0", ThreadID: "t1", Sender: "a@example.com", Recipients: []string{"b@example.com"}, Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), Subject: "LPO-12345", Body: &body},
		{MessageID: "m1", ThreadID: "t1", Subject: "Re: LPO-12345", ParentRow: &parent},
	}

	path := filepath.Join(t.TempDir(), "nested", "records.json")
	require.NoError(t, ingest.WriteJSONFile(path, records))

	got, err := ingest.JSONFile{Path: path}.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Nil(t, got[1].Body, "a missing body stays missing")
}

func TestJSONFileErrors(t *testing.T) {
	_, err := ingest.JSONFile{Path: filepath.Join(t.TempDir(), "none.json")}.Records(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"message_id": "m0"}`), 0o600))
	_, err = ingest.JSONFile{Path: path}.Records(context.Background())
	require.Error(t, err)
}

func TestEMLDir(t *testing.T) {
	root := t.TempDir()
	raw := filepath.Join(root, "raw")
	require.NoError(t, os.MkdirAll(filepath.Join(raw, "2024"), 0o755))

	// The reply sorts first by name but last by date.
	require.NoError(t, os.WriteFile(filepath.Join(raw, "2024", "a-reply.EML"), []byte(crlf(replyMessage)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "b-root.eml"), []byte(crlf(rootMessage)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "notes.txt"), []byte("not a message"), 0o600))

	cfg := config.Default().Data
	cfg.Root = root

	records, err := ingest.NewEMLDir(cfg, zap.NewNop()).Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "root@example.com", records[0].MessageID)
	assert.Equal(t, "reply@example.com", records[1].MessageID)

	res := thread.Assemble(records)
	require.Len(t, res.Threads, 1)
	assert.Equal(t, "root@example.com", res.Threads[0].ThreadID)
	assert.Equal(t, []int{0, 1}, res.Threads[0].Rows)
}

func TestEMLDirMissing(t *testing.T) {
	cfg := config.Default().Data
	cfg.Root = t.TempDir()

	_, err := ingest.NewEMLDir(cfg, zap.NewNop()).Records(context.Background())
	require.Error(t, err)
}

type gmailSvcMock struct {
	ListMessageIDsFunc func(ctx context.Context, Q string, limit int64) ([]string, error)
	GetRawMessageFunc  func(ctx context.Context, msgID string) (*gmail.Message, error)
}

func (m *gmailSvcMock) ListMessageIDs(ctx context.Context, Q string, limit int64) ([]string, error) {
	return m.ListMessageIDsFunc(ctx, Q, limit)
}

func (m *gmailSvcMock) GetRawMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	return m.GetRawMessageFunc(ctx, msgID)
}

func TestGmail(t *testing.T) {
	messages := map[string]*gmail.Message{
		"g2": {Id: "g2", ThreadId: "gt-1", Raw: base64.URLEncoding.EncodeToString([]byte(crlf(replyMessage)))},
		"g1": {Id: "g1", ThreadId: "gt-1", Raw: base64.URLEncoding.EncodeToString([]byte(crlf(rootMessage)))},
		"g3": {Id: "g3", ThreadId: "gt-2", Raw: "!!not base64!!"},
	}

	svc := &gmailSvcMock{
		ListMessageIDsFunc: func(_ context.Context, Q string, limit int64) ([]string, error) {
			if Q != "label:orders" || limit != 20 {
				return nil, errors.New("unexpected query")
			}
			return []string{"g2", "g1", "g3"}, nil
		},
		GetRawMessageFunc: func(_ context.Context, msgID string) (*gmail.Message, error) {
			return messages[msgID], nil
		},
	}

	g := ingest.NewGmail(svc, config.GmailConfig{Query: "label:orders", MaxMessages: 20}, nil, zap.NewNop())

	records, err := g.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2, "undecodable messages are skipped")

	assert.Equal(t, "root@example.com", records[0].MessageID)
	assert.Equal(t, "gt-1", records[0].ThreadID)
	assert.Equal(t, "reply@example.com", records[1].MessageID)
	assert.Equal(t, "gt-1", records[1].ThreadID)
	assert.Equal(t, "mid@example.com", records[1].InReplyTo)
}

func TestGmailErrors(t *testing.T) {
	listErr := errors.New("quota")
	g := ingest.NewGmail(&gmailSvcMock{
		ListMessageIDsFunc: func(context.Context, string, int64) ([]string, error) { return nil, listErr },
	}, config.GmailConfig{}, nil, zap.NewNop())

	_, err := g.Records(context.Background())
	require.ErrorIs(t, err, listErr)

	getErr := errors.New("gone")
	g = ingest.NewGmail(&gmailSvcMock{
		ListMessageIDsFunc: func(context.Context, string, int64) ([]string, error) { return []string{"x"}, nil },
		GetRawMessageFunc:  func(context.Context, string) (*gmail.Message, error) { return nil, getErr },
	}, config.GmailConfig{}, nil, zap.NewNop())

	_, err = g.Records(context.Background())
	require.ErrorIs(t, err, getErr)
}
