package tool_test

import (
	"context"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/search"
	"github.com/hal9000y/mailthread/internal/tool"
)

// datasetMock records the queries it receives and answers through the
// configured funcs.
type datasetMock struct {
	ThreadFunc      func(id string) (search.ThreadView, error)
	SearchFunc      func(q search.Query) []search.Hit
	AncestorsFunc   func(threadID string, row int) ([]search.Row, error)
	DescendantsFunc func(threadID string, row int) ([]search.Row, error)

	lock    sync.Mutex
	queries []search.Query
}

func (m *datasetMock) Thread(id string) (search.ThreadView, error) {
	if m.ThreadFunc == nil {
		panic("datasetMock.ThreadFunc: method is nil but Thread was just called")
	}
	return m.ThreadFunc(id)
}

func (m *datasetMock) Search(q search.Query) []search.Hit {
	if m.SearchFunc == nil {
		panic("datasetMock.SearchFunc: method is nil but Search was just called")
	}
	m.lock.Lock()
	m.queries = append(m.queries, q)
	m.lock.Unlock()
	return m.SearchFunc(q)
}

func (m *datasetMock) Ancestors(threadID string, row int) ([]search.Row, error) {
	if m.AncestorsFunc == nil {
		panic("datasetMock.AncestorsFunc: method is nil but Ancestors was just called")
	}
	return m.AncestorsFunc(threadID, row)
}

func (m *datasetMock) Descendants(threadID string, row int) ([]search.Row, error) {
	if m.DescendantsFunc == nil {
		panic("datasetMock.DescendantsFunc: method is nil but Descendants was just called")
	}
	return m.DescendantsFunc(threadID, row)
}

func (m *datasetMock) SearchCalls() []search.Query {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]search.Query(nil), m.queries...)
}

func connect(t *testing.T, ds *datasetMock, p tool.Presentation) *mcp.ClientSession {
	t.Helper()

	server := tool.NewServer(ds, extract.DefaultSet(), p)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}
