package tool_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/mailthread/internal/search"
	"github.com/hal9000y/mailthread/internal/tool"
)

func newTraverseDataset() *datasetMock {
	rows := func(threadID string, row int, ids ...int) ([]search.Row, error) {
		if threadID != "t-001" {
			return nil, fmt.Errorf("thread %q: %w", threadID, search.ErrThreadNotFound)
		}
		if row > 9 {
			return nil, search.ErrRowNotFound
		}
		out := make([]search.Row, 0, len(ids))
		for _, id := range ids {
			out = append(out, search.Row{Row: id, MessageID: fmt.Sprintf("m-%d", id), ThreadID: threadID})
		}
		return out, nil
	}

	return &datasetMock{
		AncestorsFunc: func(threadID string, row int) ([]search.Row, error) {
			return rows(threadID, row, 1, 0)
		},
		DescendantsFunc: func(threadID string, row int) ([]search.Row, error) {
			return rows(threadID, row, 3, 4, 7)
		},
	}
}

func TestTraverseThread(t *testing.T) {
	cases := []struct {
		name        string
		req         tool.TraverseThreadRequest
		expectedIDs []string
		expectedErr string
	}{
		{
			name:        "ancestors",
			req:         tool.TraverseThreadRequest{ThreadID: "t-001", Row: 3, Direction: tool.DirectionAncestors},
			expectedIDs: []string{"m-1", "m-0"},
		},
		{
			name:        "descendants",
			req:         tool.TraverseThreadRequest{ThreadID: "t-001", Row: 0, Direction: tool.DirectionDescendants},
			expectedIDs: []string{"m-3", "m-4", "m-7"},
		},
		{
			name:        "default direction",
			req:         tool.TraverseThreadRequest{ThreadID: "t-001", Row: 0},
			expectedIDs: []string{"m-3", "m-4", "m-7"},
		},
		{
			name:        "unknown direction",
			req:         tool.TraverseThreadRequest{ThreadID: "t-001", Direction: "sideways"},
			expectedErr: `unknown direction "sideways"`,
		},
		{
			name:        "unknown thread",
			req:         tool.TraverseThreadRequest{ThreadID: "t-404", Direction: tool.DirectionAncestors},
			expectedErr: "thread not found",
		},
		{
			name:        "unknown row",
			req:         tool.TraverseThreadRequest{ThreadID: "t-001", Row: 42, Direction: tool.DirectionDescendants},
			expectedErr: "row not found in thread",
		},
	}

	session := connect(t, newTraverseDataset(), tool.Presentation{})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
				Name:      "traverse_thread",
				Arguments: tc.req,
			})
			require.NoError(t, err)
			require.NotNil(t, result)
			require.NotEmpty(t, result.Content)

			if tc.expectedErr != "" {
				require.True(t, result.IsError, "Result should indicate error")
				assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, tc.expectedErr)
				return
			}

			var response tool.TraverseThreadResponse
			require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &response))

			ids := make([]string, 0, len(response.Messages))
			for _, m := range response.Messages {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}
