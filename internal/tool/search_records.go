package tool

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/mailthread/internal/metrics"
	"github.com/hal9000y/mailthread/internal/search"
)

// SearchRecordsRequest filters the search table. Filters combine.
type SearchRecordsRequest struct {
	Query      string `json:"query,omitempty" jsonschema:"free text matched against subject, body and addresses"`
	Token      string `json:"token,omitempty" jsonschema:"purchase order, phase or site token, e.g. LPO-12345, stage 2, ZAK"`
	ThreadID   string `json:"thread_id,omitempty" jsonschema:"restrict to one thread"`
	Fuzzy      bool   `json:"fuzzy,omitempty" jsonschema:"rank free text by fuzzy match instead of substring"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"max results"`
}

// SearchRecordsResponse lists matching messages.
type SearchRecordsResponse struct {
	Messages     []MessageSummary `json:"messages" jsonschema:"array of message summaries"`
	TotalResults int              `json:"total_results" jsonschema:"number of messages returned"`
}

type searchRecordsSvc interface {
	Search(q search.Query) []search.Hit
}

// NewSearchRecords creates a new SearchRecords tool.
func NewSearchRecords(svc searchRecordsSvc, p Presentation) *SearchRecords {
	return &SearchRecords{
		svc: svc,
		p:   p,
	}
}

// SearchRecords answers free text and token queries.
type SearchRecords struct {
	svc searchRecordsSvc
	p   Presentation
}

// SearchRecords runs one query.
func (t *SearchRecords) SearchRecords(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SearchRecordsRequest,
) (*mcp.CallToolResult, SearchRecordsResponse, error) {
	if input.Query == "" && input.Token == "" && input.ThreadID == "" {
		err := errors.New("one of query, token or thread_id is required")
		metrics.Query(metrics.OpSearch, err)
		return nil, SearchRecordsResponse{}, err
	}

	hits := t.svc.Search(search.Query{
		Text:     input.Query,
		Token:    input.Token,
		ThreadID: input.ThreadID,
		Fuzzy:    input.Fuzzy,
		Limit:    t.normalizeMaxResults(input.MaxResults),
	})
	metrics.Query(metrics.OpSearch, nil)

	messages := make([]MessageSummary, 0, len(hits))
	for _, h := range hits {
		messages = append(messages, t.p.summary(h.Row))
	}

	return nil, SearchRecordsResponse{
		Messages:     messages,
		TotalResults: len(messages),
	}, nil
}

func (t *SearchRecords) normalizeMaxResults(maxResults int) int {
	limit := t.p.MaxResults
	if limit <= 0 {
		limit = 50
	}
	if maxResults <= 0 || maxResults > limit {
		return limit
	}
	return maxResults
}
