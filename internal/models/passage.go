package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// UnknownCustomer is the placeholder tag for passages whose customer could
// not be inferred.
const UnknownCustomer = "Unknown"

// Provenance identifies where a passage came from. CustomerTag and
// SourceFile are never empty once a Passage has been normalized.
type Provenance struct {
	CustomerTag string `json:"customerTag"`
	SourceFile  string `json:"sourceFile"`
	SheetName   string `json:"sheetName,omitempty"`
}

// Annotation renders the bracketed prefix, e.g.
// "[Customer: Tesla | File: tesla.pdf | Sheet: Rates]".
func (p Provenance) Annotation() string {
	var b strings.Builder
	b.WriteString("[Customer: ")
	b.WriteString(p.CustomerTag)
	b.WriteString(" | File: ")
	b.WriteString(p.SourceFile)
	if p.SheetName != "" {
		b.WriteString(" | Sheet: ")
		b.WriteString(p.SheetName)
	}
	b.WriteString("]")
	return b.String()
}

type Passage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Provenance
}

// Normalize fills provenance placeholders and trims the text. It reports
// false when the passage has no text and must be dropped.
func (p *Passage) Normalize() bool {
	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		return false
	}
	p.CustomerTag = strings.TrimSpace(p.CustomerTag)
	if p.CustomerTag == "" {
		p.CustomerTag = UnknownCustomer
	}
	p.SourceFile = strings.TrimSpace(p.SourceFile)
	if p.SourceFile == "" {
		p.SourceFile = UnknownCustomer
	}
	p.SheetName = strings.TrimSpace(p.SheetName)
	return true
}

// Render returns the passage text prefixed with its provenance annotation.
func (p Passage) Render() string {
	return p.Annotation() + "\n" + p.Text
}

// ScoredPassage is a search hit.
type ScoredPassage struct {
	Passage
	Score float64 `json:"score"`
}

// RetrievalStatus distinguishes the two sentinel outcomes from a normal hit
// list.
type RetrievalStatus string

const (
	RetrievalOK       RetrievalStatus = "ok"
	RetrievalNotReady RetrievalStatus = "not_ready"
	RetrievalEmpty    RetrievalStatus = "empty"
	RetrievalFailed   RetrievalStatus = "failed"
)

const (
	NoContractsLoaded   = "No contracts loaded. Please upload contract documents first."
	NoRelevantPassages  = "No relevant information found in the contracts."
	RetrievedInfoHeader = "Retrieved Information:\n"
)

// Retrieval is the structured result of one search. Passages are ordered by
// descending score.
type Retrieval struct {
	Query    string          `json:"query"`
	Status   RetrievalStatus `json:"status"`
	Passages []ScoredPassage `json:"passages,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// HasEvidence reports whether the retrieval carries at least one passage.
func (r *Retrieval) HasEvidence() bool {
	return r != nil && r.Status == RetrievalOK && len(r.Passages) > 0
}

// Render serializes the retrieval for a language model or a transcript.
// Provenance is added here and nowhere earlier.
func (r *Retrieval) Render() string {
	if r == nil {
		return NoRelevantPassages
	}
	switch r.Status {
	case RetrievalNotReady:
		return NoContractsLoaded
	case RetrievalFailed:
		return "Error retrieving information: " + r.Error
	}
	if len(r.Passages) == 0 {
		return NoRelevantPassages
	}
	parts := make([]string, 0, len(r.Passages))
	for _, p := range r.Passages {
		parts = append(parts, p.Render())
	}
	return strings.Join(parts, "\n\n")
}

// Fingerprint is a content hash over the ordered passage ids and texts, used
// to compare two retrievals for equality.
func (r *Retrieval) Fingerprint() string {
	h := sha256.New()
	if r != nil {
		h.Write([]byte(r.Status))
		for _, p := range r.Passages {
			h.Write([]byte{0})
			h.Write([]byte(p.ID))
			h.Write([]byte{0})
			h.Write([]byte(p.Annotation()))
			h.Write([]byte(p.Text))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Customers returns the distinct customer tags in first-seen order.
func (r *Retrieval) Customers() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.Passages {
		if !seen[p.CustomerTag] {
			seen[p.CustomerTag] = true
			out = append(out, p.CustomerTag)
		}
	}
	return out
}
