package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/format"
	"github.com/hal9000y/mailthread/internal/metrics"
)

// ExtractTokensRequest carries raw text.
type ExtractTokensRequest struct {
	Text string `json:"text" jsonschema:"raw message text"`
}

// ExtractTokensResponse contains the normalized text and its tokens.
type ExtractTokensResponse struct {
	Normalized string         `json:"normalized" jsonschema:"text after line ending normalization"`
	Tokens     extract.Tokens `json:"tokens" jsonschema:"extracted tokens"`
}

type tokenExtractor interface {
	Extract(text string) extract.Tokens
}

// NewExtractTokens creates a new ExtractTokens tool.
func NewExtractTokens(ex tokenExtractor) *ExtractTokens {
	return &ExtractTokens{ex: ex}
}

// ExtractTokens runs the extractors over caller supplied text.
type ExtractTokens struct {
	ex tokenExtractor
}

// ExtractTokens normalizes the text and extracts its tokens.
func (t *ExtractTokens) ExtractTokens(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExtractTokensRequest,
) (*mcp.CallToolResult, ExtractTokensResponse, error) {
	normalized := format.NormalizeString(input.Text)
	metrics.Query(metrics.OpTokens, nil)

	return nil, ExtractTokensResponse{
		Normalized: normalized,
		Tokens:     t.ex.Extract(normalized),
	}, nil
}
