package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"legal-analyzer-backend/models"
	"legal-analyzer-backend/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClauses(ids ...string) []models.ClassifiedClause {
	clauses := make([]models.ClassifiedClause, len(ids))
	for i, id := range ids {
		clauses[i] = models.ClassifiedClause{
			Clause: models.Clause{
				ClauseID:     id,
				SectionTitle: "Section " + id,
				Text:         "clause text for " + id,
				Page:         i + 1,
			},
			ClauseType: "General",
			Importance: "Medium",
			RiskLevel:  models.RiskLow,
			RiskReason: "none",
		}
	}
	return clauses
}

func newTestIndex(t *testing.T, embedder Embedder) *VectorIndexManager {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewVectorIndexManager(embedder, store)
}

func TestVectorIndex_SearchEmptyIndex(t *testing.T) {
	index := newTestIndex(t, newStubEmbedder(8))

	results, err := index.Search(context.Background(), "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_AddAndSearch(t *testing.T) {
	embedder := newStubEmbedder(8)
	index := newTestIndex(t, embedder)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "doc1", testClauses("a", "b", "c")))
	assert.Equal(t, 3, index.Size())

	results, err := index.Search(ctx, "clause text for b", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// The stub embeds identical texts identically, so the exact-match
	// clause must rank first.
	assert.Equal(t, "b", results[0].ClauseID)
	assert.Equal(t, "doc1", results[0].DocumentID)
}

func TestVectorIndex_SearchCapsAtIndexSize(t *testing.T) {
	index := newTestIndex(t, newStubEmbedder(8))
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "doc1", testClauses("a", "b")))

	results, err := index.Search(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestVectorIndex_AddEmptyBatch(t *testing.T) {
	index := newTestIndex(t, newStubEmbedder(8))

	require.NoError(t, index.Add(context.Background(), "doc1", nil))
	assert.Equal(t, 0, index.Size())
}

func TestVectorIndex_DimensionMismatchIsFatal(t *testing.T) {
	embedder := newStubEmbedder(8)
	index := newTestIndex(t, embedder)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "doc1", testClauses("a")))

	// Provider starts returning vectors of a different width
	embedder.dim = 16
	err := index.Add(ctx, "doc1", testClauses("b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, index.Size())
}

func TestVectorIndex_EmbedderFailure(t *testing.T) {
	embedder := newStubEmbedder(8)
	embedder.err = errors.New("provider down")
	index := newTestIndex(t, embedder)

	err := index.Add(context.Background(), "doc1", testClauses("a"))
	require.Error(t, err)
	assert.Equal(t, 0, index.Size())

	_, err = index.Search(context.Background(), "anything", 3)
	assert.NoError(t, err) // empty index short-circuits before embedding
}

func TestVectorIndex_PersistLoadRoundTrip(t *testing.T) {
	embedder := newStubEmbedder(8)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	index := NewVectorIndexManager(embedder, store)
	require.NoError(t, index.Add(ctx, "doc1", testClauses("a", "b", "c")))

	before, err := index.Search(ctx, "clause text for a", 3)
	require.NoError(t, err)

	// Simulate a restart against the same storage
	restarted := NewVectorIndexManager(embedder, store)
	require.NoError(t, restarted.Load(ctx))
	assert.Equal(t, 3, restarted.Size())

	after, err := restarted.Search(ctx, "clause text for a", 3)
	require.NoError(t, err)
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].ClauseID, after[i].ClauseID)
	}
}

func TestVectorIndex_LoadMissingSnapshot(t *testing.T) {
	index := newTestIndex(t, newStubEmbedder(8))

	require.NoError(t, index.Load(context.Background()))
	assert.Equal(t, 0, index.Size())
}

func TestVectorIndex_LoadCorruptedSnapshot(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, defaultSnapshotKey, strings.NewReader("not a gob stream")))

	index := NewVectorIndexManager(newStubEmbedder(8), store)
	err = index.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexCorrupted)
}

func TestVectorIndex_PersistEmptyIsNoOp(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	index := NewVectorIndexManager(newStubEmbedder(8), store)
	ctx := context.Background()

	require.NoError(t, index.Persist(ctx))

	_, err = store.Get(ctx, defaultSnapshotKey)
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestVectorIndex_AutoPersistDisabled(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	index := NewVectorIndexManager(newStubEmbedder(8), store, WithAutoPersist(false))
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, "doc1", testClauses("a")))

	_, err = store.Get(ctx, defaultSnapshotKey)
	assert.ErrorIs(t, err, storage.ErrNotExist)

	require.NoError(t, index.Persist(ctx))
	rc, err := store.Get(ctx, defaultSnapshotKey)
	require.NoError(t, err)
	rc.Close()
}
