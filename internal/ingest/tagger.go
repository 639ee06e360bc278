package ingest

import (
	"path/filepath"
	"strings"

	"contract-qa/internal/models"
)

// Tagger infers which customer a document belongs to.
type Tagger struct {
	known     []string
	overrides map[string]string
}

// NewTagger takes the known customer names, in priority order, and explicit
// per-file assignments keyed by base file name.
func NewTagger(known []string, overrides map[string]string) *Tagger {
	o := make(map[string]string, len(overrides))
	for file, customer := range overrides {
		o[strings.ToLower(filepath.Base(file))] = customer
	}
	return &Tagger{known: known, overrides: o}
}

// Tag checks the override table, then the file name, then the text. In text
// the most frequently mentioned customer wins; earlier entries in the known
// list win ties.
func (t *Tagger) Tag(source, text string) string {
	if c, ok := t.overrides[strings.ToLower(filepath.Base(source))]; ok && c != "" {
		return c
	}

	name := normalizeName(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
	for _, c := range t.known {
		if strings.Contains(name, normalizeName(c)) {
			return c
		}
	}

	lower := strings.ToLower(text)
	best, bestCount := "", 0
	for _, c := range t.known {
		if n := strings.Count(lower, strings.ToLower(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	if best != "" {
		return best
	}
	return models.UnknownCustomer
}

// normalizeName folds case and the usual file-name word separators.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(s)
}
