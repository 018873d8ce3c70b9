package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/pkg/domain"
)

// MemoryStore keeps documents in-process. It is meant for tests and local
// runs without a database file.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]domain.Document
	chunks   map[string][]domain.Chunk // document ID -> chunks by index
	fail     error
	initFail error
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string][]domain.Chunk),
	}
}

// FailWith makes every following data operation return err as a storage error.
// A nil err restores normal behavior.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// FailInit makes Init return err as a storage error while data operations
// keep their FailWith behavior.
func (m *MemoryStore) FailInit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initFail = err
}

func (m *MemoryStore) failure(op string) error {
	if m.fail == nil {
		return nil
	}
	return wrapErr(op, m.fail)
}

func (m *MemoryStore) Init(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.initFail != nil {
		return wrapErr("init", m.initFail)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// InsertDocument stores a document and its chunks.
func (m *MemoryStore) InsertDocument(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("insert document"); err != nil {
		return err
	}
	if _, exists := m.docs[doc.ID]; exists {
		return wrapErr("insert document", fmt.Errorf("duplicate document id %s", doc.ID))
	}
	stored := make([]domain.Chunk, len(chunks))
	for i, chunk := range chunks {
		chunk.DocumentID = doc.ID
		stored[i] = chunk
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].ChunkIndex < stored[j].ChunkIndex })
	m.docs[doc.ID] = doc
	m.chunks[doc.ID] = stored
	return nil
}

// ListDocuments returns summaries newest first.
func (m *MemoryStore) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("list documents"); err != nil {
		return nil, err
	}
	res := make([]domain.DocumentSummary, 0, len(m.docs))
	for _, doc := range m.docs {
		res = append(res, doc.Summary())
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].UploadedAt.Equal(res[j].UploadedAt) {
			return res[i].UploadedAt.After(res[j].UploadedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, id string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("get document"); err != nil {
		return domain.Document{}, false, err
	}
	doc, ok := m.docs[id]
	return doc, ok, nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("delete document"); err != nil {
		return false, err
	}
	_, ok := m.docs[id]
	delete(m.docs, id)
	delete(m.chunks, id)
	return ok, nil
}

func (m *MemoryStore) CountDocuments(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("count documents"); err != nil {
		return 0, err
	}
	return len(m.docs), nil
}

func (m *MemoryStore) SumWordCounts(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("sum word counts"); err != nil {
		return 0, err
	}
	total := 0
	for _, doc := range m.docs {
		total += doc.WordCount
	}
	return total, nil
}

func (m *MemoryStore) ListChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("list chunks"); err != nil {
		return nil, err
	}
	return append([]domain.Chunk{}, m.chunks[documentID]...), nil
}

// ListAllChunks returns chunks ordered by document ID then index.
func (m *MemoryStore) ListAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("list all chunks"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.chunks))
	for id := range m.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res := []domain.Chunk{}
	for _, id := range ids {
		res = append(res, m.chunks[id]...)
	}
	return res, nil
}
