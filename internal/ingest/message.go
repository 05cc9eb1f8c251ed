package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/hal9000y/mailthread/internal/format"
	"github.com/hal9000y/mailthread/internal/textenc"
	"github.com/hal9000y/mailthread/internal/thread"
)

// Parser converts RFC 5322 messages into records.
type Parser struct {
	// Fallbacks are tried when a part declares no usable charset and its
	// bytes are not valid UTF-8.
	Fallbacks []string
	Log       *zap.Logger
}

// Parse reads one message. The thread id is the first References id, else
// the In-Reply-To id, else the message's own id. The body is the first
// text/plain part, or the text of the first text/html part; a message with
// neither has a nil body.
func (p Parser) Parse(r io.Reader) (thread.Record, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return thread.Record{}, fmt.Errorf("mail.CreateReader failed: %w", err)
	}
	defer func() { _ = mr.Close() }()

	h := mr.Header
	rec := thread.Record{}

	if rec.MessageID, err = h.MessageID(); err != nil {
		p.log().Debug("malformed Message-ID", zap.Error(err))
	}
	if rec.Subject, err = h.Subject(); err != nil {
		rec.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil {
		rec.Timestamp = date.UTC()
	}

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		rec.Sender = formatAddress(from[0])
	} else {
		rec.Sender = strings.TrimSpace(h.Get("From"))
	}
	for _, key := range []string{"To", "Cc"} {
		list, err := h.AddressList(key)
		if err != nil {
			continue
		}
		for _, a := range list {
			rec.Recipients = append(rec.Recipients, formatAddress(a))
		}
	}

	refs, _ := h.MsgIDList("References")
	inReplyTo, _ := h.MsgIDList("In-Reply-To")
	if len(inReplyTo) > 0 {
		rec.InReplyTo = inReplyTo[0]
	} else if len(refs) > 0 {
		rec.InReplyTo = refs[len(refs)-1]
	}

	switch {
	case len(refs) > 0:
		rec.ThreadID = refs[0]
	case len(inReplyTo) > 0:
		rec.ThreadID = inReplyTo[0]
	default:
		rec.ThreadID = rec.MessageID
	}

	body, err := p.body(mr)
	if err != nil {
		return thread.Record{}, err
	}
	rec.Body = body

	return rec, nil
}

func (p Parser) body(mr *mail.Reader) (*string, error) {
	var html []byte

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !message.IsUnknownCharset(err) || part == nil {
				return nil, fmt.Errorf("mr.NextPart failed: %w", err)
			}
			p.log().Debug("unknown charset, decoding with fallbacks", zap.Error(err))
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		ct, _, err := inline.ContentType()
		if err != nil {
			ct = "text/plain"
		}

		switch ct {
		case "text/plain":
			raw, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("io.ReadAll failed: %w", err)
			}
			text := p.decode(raw)
			return &text, nil
		case "text/html":
			if html != nil {
				continue
			}
			if html, err = io.ReadAll(part.Body); err != nil {
				return nil, fmt.Errorf("io.ReadAll failed: %w", err)
			}
		}
	}

	if html == nil {
		return nil, nil
	}

	text := format.HTMLText([]byte(p.decode(html)))
	return &text, nil
}

func (p Parser) decode(raw []byte) string {
	s, enc, err := textenc.Decode(raw, p.Fallbacks)
	if err != nil {
		p.log().Debug("undecodable part kept as is", zap.Error(err))
		return string(raw)
	}
	if enc != "utf-8" {
		p.log().Debug("part decoded with fallback", zap.String("encoding", enc))
	}
	return s
}

func (p Parser) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func formatAddress(a *mail.Address) string {
	if a.Name == "" {
		return a.Address
	}
	name := a.Name
	if strings.ContainsAny(name, `,;"<>@()\`) {
		name = `"` + nameEscaper.Replace(name) + `"`
	}
	return fmt.Sprintf("%s <%s>", name, a.Address)
}

var nameEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
