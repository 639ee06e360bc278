// Package passages holds the embedded, searchable passage store.
package passages

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/metrics"
	"contract-qa/internal/embedding"
	"contract-qa/internal/models"
)

var ErrNotReady = errors.New("STORE_NOT_READY")

// Entry is an indexed passage. Seq is the passage's position in the build
// batch and breaks score ties.
type Entry struct {
	models.Passage
	Seq    int
	Vector []float64
}

// Index is the similarity backend. Implementations return hits ordered by
// descending score, then ascending Seq, with at most k entries.
type Index interface {
	Name() string
	Replace(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float64, k int) ([]models.ScoredPassage, error)
	Clear(ctx context.Context) error
}

// Snapshot persists the passages of the last build so a restart can restore
// the store without re-ingesting.
type Snapshot interface {
	Save(ctx context.Context, passages []models.Passage) error
	Load(ctx context.Context) ([]models.Passage, error)
}

// Store serializes rebuilds against searches with a read/write lock. Queries
// see either the old or the new snapshot, never a partial one.
type Store struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	index    Index
	snapshot Snapshot
	logger   logger.Logger

	model    embedding.Model
	passages []models.Passage
	built    bool
}

func NewStore(embedder embedding.Embedder, index Index, snapshot Snapshot, log logger.Logger) *Store {
	return &Store{
		embedder: embedder,
		index:    index,
		snapshot: snapshot,
		logger: log.With(map[string]interface{}{
			"component": "passage-store",
			"index":     index.Name(),
		}),
	}
}

// Build replaces the store contents with passages. Passages without text are
// dropped; an empty batch clears the store.
func (s *Store) Build(ctx context.Context, batch []models.Passage) (int, error) {
	kept := make([]models.Passage, 0, len(batch))
	for _, p := range batch {
		if p.Normalize() {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return 0, s.Clear(ctx)
	}

	texts := make([]string, len(kept))
	for i, p := range kept {
		texts[i] = p.Text
	}

	model, err := s.embedder.Fit(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("fit embedder: %w", err)
	}
	vectors, err := model.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed passages: %w", err)
	}

	entries := make([]Entry, len(kept))
	for i, p := range kept {
		entries[i] = Entry{Passage: p, Seq: i, Vector: vectors[i]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Replace(ctx, entries); err != nil {
		return 0, fmt.Errorf("replace index: %w", err)
	}
	s.model = model
	s.passages = kept
	s.built = true

	if s.snapshot != nil {
		if err := s.snapshot.Save(ctx, kept); err != nil {
			s.logger.Warn("failed to persist passage snapshot", map[string]interface{}{"error": err.Error()})
		}
	}

	metrics.PassagesIndexed.Set(float64(len(kept)))
	metrics.StoreRebuilds.Inc()
	s.logger.Info("passage store built", map[string]interface{}{
		"passages":  len(kept),
		"dimension": model.Dimension(),
		"embedder":  s.embedder.Name(),
	})
	return len(kept), nil
}

// Restore rebuilds from the persisted snapshot. It reports false when there
// is nothing to restore.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.snapshot == nil {
		return false, nil
	}
	saved, err := s.snapshot.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if len(saved) == 0 {
		return false, nil
	}
	if _, err := s.Build(ctx, saved); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	s.model = nil
	s.passages = nil
	s.built = false
	if s.snapshot != nil {
		if err := s.snapshot.Save(ctx, nil); err != nil {
			s.logger.Warn("failed to clear passage snapshot", map[string]interface{}{"error": err.Error()})
		}
	}
	metrics.PassagesIndexed.Set(0)
	s.logger.Info("passage store cleared", nil)
	return nil
}

func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.built
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages)
}

// Passages returns up to limit passages in ingestion order; limit <= 0
// returns all of them.
func (s *Store) Passages(limit int) []models.Passage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.passages)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Passage, n)
	copy(out, s.passages[:n])
	return out
}

// Search returns the top k passages for query. It fails with ErrNotReady
// before the first build.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.ScoredPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.built {
		return nil, ErrNotReady
	}
	if k <= 0 {
		return nil, nil
	}

	vecs, err := s.model.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.Search(ctx, vecs[0], k)
}
