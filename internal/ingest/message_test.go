package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/mailthread/internal/format"
	"github.com/hal9000y/mailthread/internal/ingest"
	"github.com/hal9000y/mailthread/internal/textenc"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

const rootMessage = `Message-ID: <root@example.com>
Date: Mon, 03 Jun 2024 10:00:00 +0000
From: Buyer <buyer@example.com>
To: Supplier <supplier@example.com>, finance@example.com
Cc: pm@example.com
Subject: LPO-12345 steel delivery
Content-Type: text/plain; charset=utf-8

Deliver to ZAK for Phase 1
`

const replyMessage = `Message-ID: <reply@example.com>
Date: Mon, 03 Jun 2024 12:30:00 +0200
From: supplier@example.com
To: buyer@example.com
Subject: Re: LPO-12345 steel delivery
In-Reply-To: <mid@example.com>
References: <root@example.com> <mid@example.com>
Content-Type: text/plain

PO 12345 confirmed
`

func TestParse(t *testing.T) {
	p := ingest.Parser{Fallbacks: textenc.DefaultFallbacks}

	rec, err := p.Parse(strings.NewReader(crlf(rootMessage)))
	require.NoError(t, err)

	assert.Equal(t, "root@example.com", rec.MessageID)
	assert.Equal(t, "root@example.com", rec.ThreadID)
	assert.Empty(t, rec.InReplyTo)
	assert.Equal(t, "Buyer <buyer@example.com>", rec.Sender)
	assert.Equal(t, []string{"Supplier <supplier@example.com>", "finance@example.com", "pm@example.com"}, rec.Recipients)
	assert.Equal(t, "LPO-12345 steel delivery", rec.Subject)
	assert.True(t, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC).Equal(rec.Timestamp))
	require.NotNil(t, rec.Body)
	assert.Equal(t, "Deliver to ZAK for Phase 1", strings.TrimSpace(format.Normalize(rec.Body)))

	rec, err = p.Parse(strings.NewReader(crlf(replyMessage)))
	require.NoError(t, err)

	assert.Equal(t, "reply@example.com", rec.MessageID)
	assert.Equal(t, "root@example.com", rec.ThreadID, "thread is the first References id")
	assert.Equal(t, "mid@example.com", rec.InReplyTo)
	assert.Equal(t, "supplier@example.com", rec.Sender)
	assert.True(t, time.Date(2024, 6, 3, 10, 30, 0, 0, time.UTC).Equal(rec.Timestamp))
}

func TestParseQuotesDisplayNames(t *testing.T) {
	msg := `Message-ID: <q@example.com>
Date: Mon, 03 Jun 2024 10:00:00 +0000
From: "Doe, John" <jd@example.com>
To: "buyer@corp.com" <real@example.com>, Plain Name <p@example.com>
Subject: names
Content-Type: text/plain

body
`
	p := ingest.Parser{Fallbacks: textenc.DefaultFallbacks}

	rec, err := p.Parse(strings.NewReader(crlf(msg)))
	require.NoError(t, err)

	assert.Equal(t, `"Doe, John" <jd@example.com>`, rec.Sender)
	assert.Equal(t, []string{`"buyer@corp.com" <real@example.com>`, "Plain Name <p@example.com>"}, rec.Recipients)
	assert.Equal(t, []string{`"Doe, John" <jd@example.com>`}, format.SplitAddresses(rec.Sender))
	assert.Equal(t, `"bu***@corp.com" <re**@example.com>, Plain Name <p*@example.com>`, format.MaskEmails(strings.Join(rec.Recipients, ", ")))
}

func TestParseThreadFromInReplyTo(t *testing.T) {
	msg := `Message-ID: <c@example.com>
In-Reply-To: <p@example.com>
Subject: hi

body
`
	rec, err := ingest.Parser{}.Parse(strings.NewReader(crlf(msg)))
	require.NoError(t, err)

	assert.Equal(t, "p@example.com", rec.ThreadID)
	assert.Equal(t, "p@example.com", rec.InReplyTo)
	require.NotNil(t, rec.Body)
	assert.Equal(t, "body", strings.TrimSpace(format.Normalize(rec.Body)))
}

func TestParseBodies(t *testing.T) {
	cases := []struct {
		name     string
		msg      string
		expected *string
	}{
		{
			name: "quoted printable latin1",
			msg: `Message-ID: <q@example.com>
Subject: cafe
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

Caf=E9 at MIR
`,
			expected: ptr("Café at MIR"),
		},
		{
			name: "html only with attachment",
			msg: `Message-ID: <h@example.com>
Subject: html
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/html; charset=utf-8

<html><head><title>x</title></head><body><p>Order <b>LPO-77777</b></p><script>track()</script></body></html>
--b1
Content-Type: application/pdf
Content-Disposition: attachment; filename="po.pdf"

%PDF-1.4
--b1--
`,
			expected: ptr("Order LPO-77777"),
		},
		{
			name: "plain preferred over html",
			msg: `Message-ID: <a@example.com>
Subject: alt
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b2"

--b2
Content-Type: text/plain; charset=utf-8

plain text
--b2
Content-Type: text/html; charset=utf-8

<p>html text</p>
--b2--
`,
			expected: ptr("plain text"),
		},
		{
			name: "attachment only",
			msg: `Message-ID: <n@example.com>
Subject: scan
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b3"

--b3
Content-Type: application/pdf
Content-Disposition: attachment; filename="scan.pdf"

%PDF-1.4
--b3--
`,
			expected: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := ingest.Parser{Fallbacks: textenc.DefaultFallbacks}.Parse(strings.NewReader(crlf(tc.msg)))
			require.NoError(t, err)

			if tc.expected == nil {
				assert.Nil(t, rec.Body)
				return
			}
			require.NotNil(t, rec.Body)
			assert.Equal(t, *tc.expected, strings.TrimSpace(format.Normalize(rec.Body)))
		})
	}
}

func TestParseUndeclaredCharsetFallsBack(t *testing.T) {
	msg := crlf("Message-ID: <w@example.com>\nSubject: w\nContent-Type: text/plain\n\n") + "Caf\xe9\r\n"

	rec, err := ingest.Parser{Fallbacks: textenc.DefaultFallbacks}.Parse(strings.NewReader(msg))
	require.NoError(t, err)
	require.NotNil(t, rec.Body)
	assert.Equal(t, "Café", strings.TrimSpace(format.Normalize(rec.Body)))
}

func ptr(s string) *string { return &s }
