// Package extract finds purchase-order numbers, phase labels and site codes
// in normalized message text.
package extract

import (
	"regexp"
	"strings"
)

// Extractor scans text and returns canonical tokens in a stable order.
type Extractor interface {
	Scan(text string) []string
}

var (
	poPattern    = regexp.MustCompile(`(?i)\b(?:LPO|PO)\s*[-#:.]?\s*(\d{5,12})\b`)
	phasePattern = regexp.MustCompile(`(?i)\b(?:PHASE|PH|STAGE)\s*[-#:.]?\s*(\d{1,2})\b`)
)

// PurchaseOrder extracts LPO/PO numbers as PO-<digits>. Repeated numbers are
// reported once, in first-seen order.
type PurchaseOrder struct{}

// Scan implements Extractor.
func (PurchaseOrder) Scan(text string) []string {
	var tokens []string
	seen := make(map[string]struct{})

	for _, m := range poPattern.FindAllStringSubmatch(text, -1) {
		token := "PO-" + m[1]
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	return tokens
}

// Phase extracts PHASE/PH/STAGE labels as PHASE-<digits>. Every occurrence
// is kept, so the result preserves how often a phase is mentioned.
type Phase struct{}

// Scan implements Extractor.
func (Phase) Scan(text string) []string {
	var tokens []string
	for _, m := range phasePattern.FindAllStringSubmatch(text, -1) {
		tokens = append(tokens, "PHASE-"+m[1])
	}

	return tokens
}

// DefaultSites is the site vocabulary used when none is configured.
var DefaultSites = []string{"AGI", "BAB", "BUH", "HAB", "MIR", "NEB", "RUW", "SHA", "ZAK"}

// Site reports which codes of a fixed vocabulary appear in the text as whole
// words. Results follow vocabulary order, not text order.
type Site struct {
	codes    []string
	patterns []*regexp.Regexp
}

// NewSite builds a site extractor over the given vocabulary. Codes are
// uppercased; blanks and duplicates are dropped.
func NewSite(codes []string) *Site {
	s := &Site{}
	seen := make(map[string]struct{}, len(codes))

	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}

		s.codes = append(s.codes, code)
		s.patterns = append(s.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(code)+`\b`))
	}

	return s
}

// Codes returns the vocabulary in match order.
func (s *Site) Codes() []string {
	return append([]string(nil), s.codes...)
}

// Scan implements Extractor.
func (s *Site) Scan(text string) []string {
	if text == "" {
		return nil
	}

	upper := strings.ToUpper(text)

	var tokens []string
	for i, p := range s.patterns {
		if p.MatchString(upper) {
			tokens = append(tokens, s.codes[i])
		}
	}

	return tokens
}
