package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type dataset interface {
	getThreadSvc
	searchRecordsSvc
	traverseThreadSvc
}

// NewServer creates an MCP server exposing the thread dataset.
func NewServer(ds dataset, ex tokenExtractor, p Presentation) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "mailthread", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_thread",
		Description: "Get a thread with its messages and reply edges",
	}, NewGetThread(ds, p).GetThread)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_records",
		Description: "Search messages by free text, purchase order / phase / site token, or thread",
	}, NewSearchRecords(ds, p).SearchRecords)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "traverse_thread",
		Description: "List the ancestors or descendants of a message row within its thread",
	}, NewTraverseThread(ds, p).TraverseThread)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_tokens",
		Description: "Extract purchase order numbers, phases and site codes from text",
	}, NewExtractTokens(ex).ExtractTokens)

	return server
}
