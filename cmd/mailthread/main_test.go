package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/config"
	"github.com/hal9000y/mailthread/internal/contract"
	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/ingest"
	"github.com/hal9000y/mailthread/internal/search"
	"github.com/hal9000y/mailthread/internal/thread"
	"github.com/hal9000y/mailthread/internal/tool"
)

func strPtr(s string) *string { return &s }

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	c := config.Default()
	c.Data.Root = t.TempDir()

	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []thread.Record{
		{MessageID: "root@x", ThreadID: "root@x", Sender: "buyer@example.com", Timestamp: ts, Subject: "LPO-12345 steel", Body: strPtr("Deliver to ZAK_x000D_Phase 1")},
		{MessageID: "reply@x", ThreadID: "root@x", Sender: "supplier@example.com", Timestamp: ts.Add(time.Hour), Subject: "Re: LPO-12345 steel", Body: strPtr("PO 12345 confirmed"), InReplyTo: "root@x"},
		{MessageID: "other@x", ThreadID: "other@x", Sender: "pm@example.com", Timestamp: ts.Add(2 * time.Hour), Subject: "AGI handover", Body: nil},
	}
	require.NoError(t, ingest.WriteJSONFile(c.Data.Path(c.Data.RecordsFile), records))

	return c
}

func TestBuildAndServe(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	report, err := runBuild(ctx, c, sourceJSON, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Messages)
	assert.Equal(t, 2, report.Threads)
	assert.Equal(t, 1, report.Edges)
	assert.Empty(t, report.Rejected)

	for _, name := range []string{c.Data.ThreadsFile, c.Data.EdgesFile, c.Data.SearchFile} {
		assert.FileExists(t, c.Data.Path(name))
	}

	ds, err := loadDataset(ctx, c, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, search.Stats{Threads: 2, Edges: 1, Rows: 3}, ds.Stats())

	mux := newMux(ds, nil, newMCPServer(ds, c), nil, c, zap.NewNop())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?token=lpo-12345", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bu***@example.com"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailthread_dataset_items")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "oauth is only mounted with gmail credentials")
}

func TestBuildFromEML(t *testing.T) {
	c := config.Default()
	c.Data.Root = t.TempDir()
	raw := c.Data.Path(c.Data.RawDir)
	require.NoError(t, os.MkdirAll(raw, 0o755))

	msg := "Message-ID: <a@x>\r\nDate: Mon, 03 Jun 2024 10:00:00 +0000\r\nFrom: a@example.com\r\nSubject: Stage 3 at NEB\r\n\r\nhello\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(raw, "a.eml"), []byte(msg), 0o600))

	report, err := runBuild(context.Background(), c, sourceEML, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Messages)

	_, err = runBuild(context.Background(), c, "imap", zap.NewNop())
	require.ErrorContains(t, err, `unknown source "imap"`)
}

func TestServeLoadFailure(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	_, err := runBuild(ctx, c, sourceJSON, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.Data.Path(c.Data.ThreadsFile), []byte(`[{"thread_id": "root@x"}]`), 0o600))

	ds, loadErr := loadDataset(ctx, c, zap.NewNop())
	require.Nil(t, ds)

	var schemaErr *contract.SchemaError
	require.ErrorAs(t, loadErr, &schemaErr)

	mux := newMux(nil, loadErr, nil, nil, c, zap.NewNop())

	for _, target := range []string{"/api/stats", "/api/threads/root@x", "/mcp"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "members", target)
	}
}

func TestMCPServer(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	_, err := runBuild(ctx, c, sourceJSON, zap.NewNop())
	require.NoError(t, err)
	ds, err := loadDataset(ctx, c, zap.NewNop())
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := newMCPServer(ds, c).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer clientSession.Close()

	result, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "traverse_thread",
		Arguments: tool.TraverseThreadRequest{ThreadID: "root@x", Row: 1, Direction: tool.DirectionAncestors},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp tool.TraverseThreadResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "root@x", resp.Messages[0].ID)
	assert.Equal(t, extract.Tokens{PO: []string{"PO-12345"}, Phases: []string{"PHASE-1"}, Sites: []string{"ZAK"}}, resp.Messages[0].Tokens)
}

func TestTokensCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("PH-2 and phase 2 at RUW, LPO#0012345"))
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "tokens"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var tokens extract.Tokens
	require.NoError(t, json.Unmarshal(out.Bytes(), &tokens))
	assert.Equal(t, extract.Tokens{
		PO:     []string{"PO-0012345"},
		Phases: []string{"PHASE-2", "PHASE-2"},
		Sites:  []string{"RUW"},
	}, tokens)
}
