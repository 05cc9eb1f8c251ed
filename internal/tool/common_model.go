package tool

import (
	"strconv"
	"strings"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/format"
	"github.com/hal9000y/mailthread/internal/search"
)

const snippetLen = 160

// EmailAddress represents an email address with optional display name.
type EmailAddress struct {
	Name  string `json:"name,omitempty" jsonschema:"the display name"`
	Email string `json:"email" jsonschema:"the email address, masked unless disabled"`
}

// MessageSummary contains essential message metadata.
type MessageSummary struct {
	Row       int            `json:"row" jsonschema:"row number of the message"`
	ID        string         `json:"id" jsonschema:"message ID"`
	ThreadID  string         `json:"thread_id" jsonschema:"thread ID"`
	Timestamp string         `json:"timestamp,omitempty" jsonschema:"message timestamp"`
	From      EmailAddress   `json:"from" jsonschema:"sender information"`
	To        []EmailAddress `json:"to,omitempty" jsonschema:"recipients"`
	Subject   string         `json:"subject" jsonschema:"email subject"`
	Snippet   string         `json:"snippet" jsonschema:"message preview"`
	Tokens    extract.Tokens `json:"tokens" jsonschema:"purchase orders, phases and sites found in the message"`
}

// Presentation controls how records are rendered for clients.
type Presentation struct {
	MaskEmails bool
	MaxResults int
}

func (p Presentation) summary(r search.Row) MessageSummary {
	return MessageSummary{
		Row:       r.Row,
		ID:        r.MessageID,
		ThreadID:  r.ThreadID,
		Timestamp: r.Timestamp,
		From:      p.address(parseEmailAddress(r.Sender)),
		To:        p.addresses(parseEmailAddressList(r.Recipients)),
		Subject:   r.Subject,
		Snippet:   snippet(r.Body),
		Tokens:    r.Tokens,
	}
}

func (p Presentation) address(a EmailAddress) EmailAddress {
	if p.MaskEmails {
		a.Email = format.MaskEmail(a.Email)
		a.Name = format.MaskDisplayName(a.Name)
	}
	return a
}

func (p Presentation) addresses(list []EmailAddress) []EmailAddress {
	for i := range list {
		list[i] = p.address(list[i])
	}
	return list
}

func snippet(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	rs := []rune(s)
	if len(rs) <= snippetLen {
		return s
	}
	return string(rs[:snippetLen-3]) + "..."
}

func parseEmailAddress(from string) EmailAddress {
	addr := EmailAddress{}

	if idx := strings.LastIndex(from, "<"); idx != -1 {
		addr.Name = strings.TrimSpace(from[:idx])
		if endIdx := strings.Index(from[idx:], ">"); endIdx != -1 {
			addr.Email = strings.TrimSpace(from[idx+1 : idx+endIdx])
		}
	} else {
		addr.Email = strings.TrimSpace(from)
	}

	if unq, err := strconv.Unquote(addr.Name); err == nil {
		addr.Name = unq
	} else {
		addr.Name = strings.Trim(addr.Name, "\"")
	}

	return addr
}

func parseEmailAddressList(addresses string) []EmailAddress {
	if addresses == "" {
		return nil
	}

	parts := format.SplitAddresses(addresses)
	result := make([]EmailAddress, 0, len(parts))

	for _, part := range parts {
		result = append(result, parseEmailAddress(part))
	}

	return result
}
