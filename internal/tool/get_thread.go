package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/mailthread/internal/metrics"
	"github.com/hal9000y/mailthread/internal/search"
	"github.com/hal9000y/mailthread/internal/thread"
)

// GetThreadRequest names the thread to retrieve.
type GetThreadRequest struct {
	ThreadID string `json:"thread_id" jsonschema:"the thread ID"`
}

// GetThreadResponse contains the thread, its messages and its reply edges.
type GetThreadResponse struct {
	ThreadID string           `json:"thread_id" jsonschema:"thread ID"`
	Subject  string           `json:"subject,omitempty" jsonschema:"subject of the first message"`
	Messages []MessageContent `json:"messages" jsonschema:"messages in row order"`
	Edges    []thread.Edge    `json:"edges" jsonschema:"reply edges parent_row -> child_row"`
}

// MessageContent contains a message summary and its normalized body.
type MessageContent struct {
	Summary  MessageSummary `json:"summary" jsonschema:"summary"`
	BodyText string         `json:"body_text,omitempty" jsonschema:"normalized body"`
}

type getThreadSvc interface {
	Thread(id string) (search.ThreadView, error)
}

// NewGetThread creates a new GetThread tool.
func NewGetThread(svc getThreadSvc, p Presentation) *GetThread {
	return &GetThread{
		svc: svc,
		p:   p,
	}
}

// GetThread returns one thread with full message bodies.
type GetThread struct {
	svc getThreadSvc
	p   Presentation
}

// GetThread retrieves a thread by ID.
func (t *GetThread) GetThread(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetThreadRequest,
) (*mcp.CallToolResult, GetThreadResponse, error) {
	view, err := t.svc.Thread(input.ThreadID)
	metrics.Query(metrics.OpThread, err)
	if err != nil {
		return nil, GetThreadResponse{}, fmt.Errorf("get thread %s failed: %w", input.ThreadID, err)
	}

	messages := make([]MessageContent, 0, len(view.Messages))
	for _, r := range view.Messages {
		messages = append(messages, MessageContent{
			Summary:  t.p.summary(r),
			BodyText: r.Body,
		})
	}

	edges := view.Edges
	if edges == nil {
		edges = []thread.Edge{}
	}

	return nil, GetThreadResponse{
		ThreadID: view.Thread.ThreadID,
		Subject:  view.Thread.Subject,
		Messages: messages,
		Edges:    edges,
	}, nil
}
