package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/mailthread/internal/metrics"
	"github.com/hal9000y/mailthread/internal/search"
)

// Traversal directions.
const (
	DirectionAncestors   = "ancestors"
	DirectionDescendants = "descendants"
)

// TraverseThreadRequest names a message row and the walk direction.
type TraverseThreadRequest struct {
	ThreadID  string `json:"thread_id" jsonschema:"thread ID"`
	Row       int    `json:"row" jsonschema:"row number of the starting message"`
	Direction string `json:"direction,omitempty" jsonschema:"ancestors or descendants (default)"`
}

// TraverseThreadResponse lists the messages reached by the walk.
type TraverseThreadResponse struct {
	Messages []MessageSummary `json:"messages" jsonschema:"ancestors nearest first, or descendants breadth first"`
}

type traverseThreadSvc interface {
	Ancestors(threadID string, row int) ([]search.Row, error)
	Descendants(threadID string, row int) ([]search.Row, error)
}

// NewTraverseThread creates a new TraverseThread tool.
func NewTraverseThread(svc traverseThreadSvc, p Presentation) *TraverseThread {
	return &TraverseThread{
		svc: svc,
		p:   p,
	}
}

// TraverseThread walks the reply tree of a thread.
type TraverseThread struct {
	svc traverseThreadSvc
	p   Presentation
}

// TraverseThread returns ancestors or descendants of a row.
func (t *TraverseThread) TraverseThread(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input TraverseThreadRequest,
) (*mcp.CallToolResult, TraverseThreadResponse, error) {
	var (
		rows []search.Row
		err  error
		op   string
	)

	switch input.Direction {
	case DirectionAncestors:
		op = metrics.OpAncestors
		rows, err = t.svc.Ancestors(input.ThreadID, input.Row)
	case DirectionDescendants, "":
		op = metrics.OpDescendants
		rows, err = t.svc.Descendants(input.ThreadID, input.Row)
	default:
		return nil, TraverseThreadResponse{}, fmt.Errorf("unknown direction %q", input.Direction)
	}

	metrics.Query(op, err)
	if err != nil {
		return nil, TraverseThreadResponse{}, fmt.Errorf("%s of %s/%d failed: %w", op, input.ThreadID, input.Row, err)
	}

	messages := make([]MessageSummary, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, t.p.summary(r))
	}

	return nil, TraverseThreadResponse{Messages: messages}, nil
}
