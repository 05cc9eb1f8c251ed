package format

import (
	"regexp"
	"strings"
)

const maskRune = '*'

// MaskEmail hides most of the local part of an address for display.
// Local parts of up to two characters keep the first one, longer ones keep
// the first two. The domain is never masked. Input without a local part is
// returned unchanged.
func MaskEmail(address string) string {
	local, domain, ok := strings.Cut(address, "@")
	if !ok || local == "" {
		return address
	}

	rs := []rune(local)
	keep := 2
	if len(rs) <= 2 {
		keep = 1
	}

	masked := len(rs) - keep
	if masked < 1 {
		masked = 1
	}

	return string(rs[:keep]) + strings.Repeat(string(maskRune), masked) + "@" + domain
}

var nameAddress = regexp.MustCompile(`[^\s"<>,;]+@[^\s"<>,;]+`)

// MaskEmails masks every address of a comma separated list. Display names
// written as `Name <addr>` are kept, except for addresses inside them.
func MaskEmails(list string) string {
	if strings.TrimSpace(list) == "" {
		return list
	}

	parts := SplitAddresses(list)
	for i, part := range parts {
		parts[i] = maskAddressField(part)
	}

	return strings.Join(parts, ", ")
}

// MaskDisplayName masks every address-like word of a display name.
func MaskDisplayName(name string) string {
	return nameAddress.ReplaceAllStringFunc(name, MaskEmail)
}

// SplitAddresses splits a comma separated address list. Commas inside
// double quotes or angle brackets do not separate entries. Entries are
// trimmed and empty ones dropped.
func SplitAddresses(list string) []string {
	var (
		out     []string
		start   int
		quoted  bool
		escaped bool
		angle   int
	)

	flush := func(end int) {
		if part := strings.TrimSpace(list[start:end]); part != "" {
			out = append(out, part)
		}
	}

	for i, r := range list {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '<':
			angle++
		case r == '>' && angle > 0:
			angle--
		case r == ',' && angle == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(list))

	return out
}

func maskAddressField(field string) string {
	start := strings.LastIndex(field, "<")
	if start == -1 {
		return MaskEmail(field)
	}

	end := strings.Index(field[start:], ">")
	if end == -1 {
		return MaskEmail(field)
	}
	end += start

	return MaskDisplayName(field[:start]) + "<" + MaskEmail(strings.TrimSpace(field[start+1:end])) + field[end:]
}

// MaskLeft replaces everything but the last four runes of s.
func MaskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}
	return string(rs)
}
