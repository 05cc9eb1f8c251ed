// Package format turns raw message text into its canonical and display forms.
package format

import "strings"

// CRPlaceholder is the token spreadsheet exports write in place of a carriage return.
const CRPlaceholder = "_x000D_"

// Normalize returns the canonical form of a raw message body. A nil body
// normalizes to the empty string.
func Normalize(raw *string) string {
	if raw == nil {
		return ""
	}

	return NormalizeString(*raw)
}

// NormalizeString expands the carriage-return placeholder to a newline, then
// unifies CRLF and bare CR line endings. The steps run in that order, so a CR
// directly followed by a placeholder yields a single newline. It is
// idempotent.
func NormalizeString(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, CRPlaceholder, "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
