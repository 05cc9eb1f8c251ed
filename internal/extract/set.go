package extract

import "strings"

// Field names used for token columns and token queries.
const (
	FieldPO    = "po_numbers"
	FieldPhase = "phases"
	FieldSite  = "sites"
)

// Tokens holds the tokens extracted from one message.
type Tokens struct {
	PO     []string `json:"po_numbers"`
	Phases []string `json:"phases"`
	Sites  []string `json:"sites"`
}

// Set runs the three extractors together.
type Set struct {
	PO    Extractor
	Phase Extractor
	Site  *Site
}

// NewSet returns the standard extractors with the given site vocabulary.
// An empty vocabulary falls back to DefaultSites.
func NewSet(sites []string) *Set {
	if len(sites) == 0 {
		sites = DefaultSites
	}

	return &Set{
		PO:    PurchaseOrder{},
		Phase: Phase{},
		Site:  NewSite(sites),
	}
}

// DefaultSet returns NewSet(DefaultSites).
func DefaultSet() *Set {
	return NewSet(nil)
}

// Extract scans already normalized text with every extractor.
func (s *Set) Extract(text string) Tokens {
	return Tokens{
		PO:     s.PO.Scan(text),
		Phases: s.Phase.Scan(text),
		Sites:  s.Site.Scan(text),
	}
}

// Canonical maps a free-form token such as "lpo 12345", "stage 2" or "zak"
// to the field it belongs to and its canonical form.
func (s *Set) Canonical(token string) (field, canonical string, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", false
	}

	if found := s.PO.Scan(token); len(found) == 1 {
		return FieldPO, found[0], true
	}
	if found := s.Phase.Scan(token); len(found) == 1 {
		return FieldPhase, found[0], true
	}
	if found := s.Site.Scan(token); len(found) == 1 {
		return FieldSite, found[0], true
	}

	return "", "", false
}
