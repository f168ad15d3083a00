package service

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"legal-analyzer-backend/models"
	"legal-analyzer-backend/storage"
)

var (
	// ErrDimensionMismatch indicates vectors of the wrong dimensionality,
	// a configuration fault rather than a transient condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexCorrupted indicates an unreadable persisted snapshot.
	ErrIndexCorrupted = errors.New("persisted index is corrupted")
)

// defaultSnapshotKey is where the index snapshot lives in blob storage
const defaultSnapshotKey = "index/clauses.snapshot"

// IndexRecord is the unit stored in the vector index
type IndexRecord struct {
	Vector       []float64
	ClauseID     string
	DocumentID   string
	SectionTitle string
	ClauseType   string
	RiskLevel    string
	Page         int
	Text         string
}

// persistedIndex is the gob snapshot layout
type persistedIndex struct {
	Dim     int
	Records []IndexRecord
}

// VectorIndexManager owns the process-wide similarity index. All access to
// the index goes through this type; a readers-writer lock serializes adds
// against concurrent searches and persists.
type VectorIndexManager struct {
	embedder    Embedder
	store       storage.Storage
	snapshotKey string
	autoPersist bool

	mu      sync.RWMutex
	dim     int
	records []IndexRecord
}

// IndexOption is a functional option for VectorIndexManager
type IndexOption func(*VectorIndexManager)

// WithSnapshotKey overrides the blob key used for persistence
func WithSnapshotKey(key string) IndexOption {
	return func(m *VectorIndexManager) {
		m.snapshotKey = key
	}
}

// WithAutoPersist controls write-through persistence after Add. Disabling it
// defers durability to an explicit Persist call.
func WithAutoPersist(enabled bool) IndexOption {
	return func(m *VectorIndexManager) {
		m.autoPersist = enabled
	}
}

// NewVectorIndexManager creates an empty index manager
func NewVectorIndexManager(embedder Embedder, store storage.Storage, opts ...IndexOption) *VectorIndexManager {
	m := &VectorIndexManager{
		embedder:    embedder,
		store:       store,
		snapshotKey: defaultSnapshotKey,
		autoPersist: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads a previously persisted snapshot. A missing snapshot leaves the
// index empty; an unreadable one is a fatal storage fault.
func (m *VectorIndexManager) Load(ctx context.Context) error {
	rc, err := m.store.Get(ctx, m.snapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			log.Printf("No existing index snapshot found, starting fresh")
			return nil
		}
		return fmt.Errorf("failed to read index snapshot: %w", err)
	}
	defer rc.Close()

	var snapshot persistedIndex
	if err := gob.NewDecoder(rc).Decode(&snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCorrupted, err)
	}
	for _, r := range snapshot.Records {
		if len(r.Vector) != snapshot.Dim {
			return fmt.Errorf("%w: record %s has %d dimensions, snapshot declares %d",
				ErrIndexCorrupted, r.ClauseID, len(r.Vector), snapshot.Dim)
		}
	}

	m.mu.Lock()
	m.dim = snapshot.Dim
	m.records = snapshot.Records
	m.mu.Unlock()

	log.Printf("Index snapshot loaded with %d vectors", len(snapshot.Records))
	return nil
}

// Add embeds the clauses in one batched call and appends them to the index.
// The first batch fixes the index dimensionality; later batches must match.
// With auto-persist on, the add is written through to storage; a persistence
// failure is reported but does not undo the in-memory add.
func (m *VectorIndexManager) Add(ctx context.Context, documentID string, clauses []models.ClassifiedClause) error {
	if len(clauses) == 0 {
		return nil
	}

	texts := make([]string, len(clauses))
	for i, c := range clauses {
		texts[i] = c.Text
	}

	vectors, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed clauses: %w", err)
	}
	if len(vectors) != len(clauses) {
		return fmt.Errorf("embedder returned %d vectors for %d clauses", len(vectors), len(clauses))
	}

	records := make([]IndexRecord, len(clauses))
	for i, c := range clauses {
		records[i] = IndexRecord{
			Vector:       vectors[i],
			ClauseID:     c.ClauseID,
			DocumentID:   documentID,
			SectionTitle: c.SectionTitle,
			ClauseType:   c.ClauseType,
			RiskLevel:    c.RiskLevel,
			Page:         c.Page,
			Text:         c.Text,
		}
	}

	m.mu.Lock()
	dim := m.dim
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			m.mu.Unlock()
			return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(r.Vector), dim)
		}
	}
	m.dim = dim
	m.records = append(m.records, records...)
	total := len(m.records)
	m.mu.Unlock()

	log.Printf("Added %d records to index (total: %d)", len(records), total)

	if m.autoPersist {
		if err := m.Persist(ctx); err != nil {
			return fmt.Errorf("index updated but persistence failed: %w", err)
		}
	}
	return nil
}

// Search embeds the query and returns up to k records, best similarity
// first. An empty index yields an empty result, never an error.
func (m *VectorIndexManager) Search(ctx context.Context, query string, k int) ([]IndexRecord, error) {
	m.mu.RLock()
	empty := len(m.records) == 0
	m.mu.RUnlock()
	if empty {
		log.Printf("Index is empty, cannot search")
		return nil, nil
	}

	queryVec, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return nil, nil
	}
	if len(queryVec) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(queryVec), m.dim)
	}

	// Vectors are L2-normalized, so the dot product is cosine similarity
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(m.records))
	for i, r := range m.records {
		scores[i] = scored{idx: i, score: dot(r.Vector, queryVec)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]IndexRecord, 0, k)
	for i := 0; i < k; i++ {
		results = append(results, m.records[scores[i].idx])
	}

	log.Printf("Index search returned %d results for query: %s", len(results), truncateString(query, 50))
	return results, nil
}

// Persist serializes the index to blob storage. Persisting an empty index is
// a warning no-op.
func (m *VectorIndexManager) Persist(ctx context.Context) error {
	m.mu.RLock()
	snapshot := persistedIndex{
		Dim:     m.dim,
		Records: append([]IndexRecord(nil), m.records...),
	}
	m.mu.RUnlock()

	if len(snapshot.Records) == 0 {
		log.Printf("No index to persist")
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}
	if err := m.store.Put(ctx, m.snapshotKey, &buf); err != nil {
		return fmt.Errorf("failed to persist index snapshot: %w", err)
	}

	log.Printf("Index snapshot persisted (%d records)", len(snapshot.Records))
	return nil
}

// Size returns the number of indexed records
func (m *VectorIndexManager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
