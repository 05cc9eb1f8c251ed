package tool_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/tool"
)

func TestExtractTokens(t *testing.T) {
	session := connect(t, &datasetMock{}, tool.Presentation{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "extract_tokens",
		Arguments: tool.ExtractTokensRequest{Text: "LPO-12345 for ZAK_x000D_Phase 2\r\nstage 2, PO#12345 and MIR"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	var response tool.ExtractTokensResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(*mcp.TextContent).Text), &response))

	assert.Equal(t, "LPO-12345 for ZAK\nPhase 2\nstage 2, PO#12345 and MIR", response.Normalized)
	assert.Equal(t, extract.Tokens{
		PO:     []string{"PO-12345"},
		Phases: []string{"PHASE-2", "PHASE-2"},
		Sites:  []string{"MIR", "ZAK"},
	}, response.Tokens)
}
