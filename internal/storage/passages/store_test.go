package passages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"contract-qa/internal/common/logger"
	"contract-qa/internal/embedding"
	"contract-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, snapshot Snapshot) *Store {
	return NewStore(embedding.NewTFIDF(0), NewMemoryIndex(), snapshot, logger.NewTestLogger(t))
}

func contractPassages() []models.Passage {
	return []models.Passage{
		{ID: "p1", Text: "Tesla OTD target is 98%", Provenance: models.Provenance{CustomerTag: "Tesla", SourceFile: "tesla.pdf"}},
		{ID: "p2", Text: "Barry Callebaut OTD target is 95%", Provenance: models.Provenance{CustomerTag: "Barry Callebaut", SourceFile: "barry.xlsx", SheetName: "KPI"}},
		{ID: "p3", Text: "Payment terms are net 60 days from invoice", Provenance: models.Provenance{CustomerTag: "Carlsberg", SourceFile: "carlsberg.txt"}},
		{ID: "p4", Text: "Fuel surcharge is 12% on base rates", Provenance: models.Provenance{CustomerTag: "Prysmian", SourceFile: "prysmian.pdf"}},
	}
}

// ==========================
// Store lifecycle
// ==========================

func TestStore_NotReadyBeforeBuild(t *testing.T) {
	store := newTestStore(t, nil)

	assert.False(t, store.Ready())
	_, err := store.Search(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestStore_BuildAndSearch(t *testing.T) {
	store := newTestStore(t, nil)

	n, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, store.Ready())
	assert.Equal(t, 4, store.Count())

	hits, err := store.Search(context.Background(), "What is Tesla's OTD target?", 12)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "p1", hits[0].ID)
	assert.Equal(t, "Tesla", hits[0].CustomerTag)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestStore_SearchRespectsK(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)

	hits, err := store.Search(context.Background(), "OTD target", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = store.Search(context.Background(), "OTD target", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_SearchIsDeterministic(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)

	first, err := store.Search(context.Background(), "OTD target", 12)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := store.Search(context.Background(), "OTD target", 12)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestStore_TiesBreakByIngestionOrder(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), []models.Passage{
		{ID: "b", Text: "same words here"},
		{ID: "a", Text: "same words here"},
	})
	require.NoError(t, err)

	hits, err := store.Search(context.Background(), "same words", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].ID)
	assert.Equal(t, "a", hits[1].ID)
}

func TestStore_NoOverlapIsEmpty(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)

	hits, err := store.Search(context.Background(), "zebra giraffe", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_BuildNormalizesProvenance(t *testing.T) {
	store := newTestStore(t, nil)
	n, err := store.Build(context.Background(), []models.Passage{
		{ID: "x", Text: "orphan clause"},
		{ID: "y", Text: "   "},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := store.Passages(0)
	require.Len(t, got, 1)
	assert.Equal(t, models.UnknownCustomer, got[0].CustomerTag)
	assert.Equal(t, models.UnknownCustomer, got[0].SourceFile)
}

func TestStore_EmptyBatchClears(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)

	n, err := store.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, store.Ready())

	_, err = store.Search(context.Background(), "OTD", 3)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestStore_PassagesLimit(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)

	got := store.Passages(2)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Len(t, store.Passages(0), 4)
}

func TestStore_ConcurrentSearchDuringRebuild(t *testing.T) {
	store := newTestStore(t, nil)
	_, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				hits, err := store.Search(context.Background(), "OTD target", 3)
				if assert.NoError(t, err) {
					assert.LessOrEqual(t, len(hits), 3)
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := store.Build(context.Background(), contractPassages())
		require.NoError(t, err)
	}
	wg.Wait()
}

// ==========================
// Snapshot integration
// ==========================

type memorySnapshot struct {
	saved   []models.Passage
	saveErr error
}

func (m *memorySnapshot) Save(_ context.Context, p []models.Passage) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append([]models.Passage(nil), p...)
	return nil
}

func (m *memorySnapshot) Load(_ context.Context) ([]models.Passage, error) {
	return m.saved, nil
}

func TestStore_RestoreFromSnapshot(t *testing.T) {
	snap := &memorySnapshot{}
	first := newTestStore(t, snap)
	_, err := first.Build(context.Background(), contractPassages())
	require.NoError(t, err)
	require.Len(t, snap.saved, 4)

	second := newTestStore(t, snap)
	restored, err := second.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, 4, second.Count())

	a, _ := first.Search(context.Background(), "payment terms", 3)
	b, _ := second.Search(context.Background(), "payment terms", 3)
	assert.Equal(t, a, b)
}

func TestStore_RestoreNothing(t *testing.T) {
	restored, err := newTestStore(t, &memorySnapshot{}).Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)

	restored, err = newTestStore(t, nil).Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestStore_SnapshotFailureDoesNotFailBuild(t *testing.T) {
	store := newTestStore(t, &memorySnapshot{saveErr: errors.New("disk full")})
	n, err := store.Build(context.Background(), contractPassages())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

// ==========================
// Failure paths
// ==========================

type failingIndex struct{ MemoryIndex }

func (f *failingIndex) Name() string { return "failing" }
func (f *failingIndex) Replace(context.Context, []Entry) error {
	return fmt.Errorf("index unavailable")
}

func TestStore_ReplaceFailureKeepsOldSnapshot(t *testing.T) {
	store := NewStore(embedding.NewTFIDF(0), &failingIndex{}, nil, logger.NewTestLogger(t))
	_, err := store.Build(context.Background(), contractPassages())
	require.Error(t, err)
	assert.False(t, store.Ready())
}
