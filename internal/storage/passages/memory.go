package passages

import (
	"context"
	"sort"

	"contract-qa/internal/embedding"
	"contract-qa/internal/models"
)

// MemoryIndex scans every entry with cosine similarity. Hits scoring zero or
// less share no signal with the query and are dropped.
type MemoryIndex struct {
	entries []Entry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Name() string { return "memory" }

func (m *MemoryIndex) Replace(_ context.Context, entries []Entry) error {
	m.entries = entries
	return nil
}

func (m *MemoryIndex) Clear(_ context.Context) error {
	m.entries = nil
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float64, k int) ([]models.ScoredPassage, error) {
	type scored struct {
		entry *Entry
		score float64
	}
	hits := make([]scored, 0, len(m.entries))
	for i := range m.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := embedding.Cosine(vector, m.entries[i].Vector)
		if score > 0 {
			hits = append(hits, scored{entry: &m.entries[i], score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.Seq < hits[j].entry.Seq
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]models.ScoredPassage, len(hits))
	for i, h := range hits {
		out[i] = models.ScoredPassage{Passage: h.entry.Passage, Score: h.score}
	}
	return out, nil
}
