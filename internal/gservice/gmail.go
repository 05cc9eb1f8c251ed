// Package gservice wraps the Gmail API calls used by ingestion.
package gservice

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUserID = "me"
	pageSize    = 100
)

type authClient interface {
	Client(ctx context.Context) (*http.Client, error)
}

// NewGmail returns a Gmail client authorized through auth. Extra options are
// passed to gmail.NewService.
func NewGmail(auth authClient, opts ...option.ClientOption) *GMail {
	return &GMail{
		auth: auth,
		opts: opts,
	}
}

// GMail lists and fetches messages of the authorized account.
type GMail struct {
	auth authClient
	opts []option.ClientOption
}

// ListMessageIDs returns up to limit message ids matching Q, newest first,
// following page tokens as needed.
func (m *GMail) ListMessageIDs(ctx context.Context, Q string, limit int64) ([]string, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	var (
		ids       []string
		pageToken string
	)

	for limit <= 0 || int64(len(ids)) < limit {
		size := int64(pageSize)
		if limit > 0 && limit-int64(len(ids)) < size {
			size = limit - int64(len(ids))
		}

		result, err := svc.Users.Messages.List(gmailUserID).
			Q(Q).
			PageToken(pageToken).
			MaxResults(size).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("messages.List failed: %w", err)
		}

		for _, msg := range result.Messages {
			ids = append(ids, msg.Id)
		}

		if result.NextPageToken == "" || len(result.Messages) == 0 {
			break
		}
		pageToken = result.NextPageToken
	}

	if limit > 0 && int64(len(ids)) > limit {
		ids = ids[:limit]
	}

	return ids, nil
}

// GetRawMessage fetches a message in RAW format: Raw holds the base64url
// encoded RFC 5322 message.
func (m *GMail) GetRawMessage(ctx context.Context, msgID string) (*gmail.Message, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
		Format("raw").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	return msg, nil
}

func (m *GMail) newSvc(ctx context.Context) (*gmail.Service, error) {
	clt, err := m.auth.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.Client failed: %w", err)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(clt)}, m.opts...)

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}
