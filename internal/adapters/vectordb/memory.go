// Package vectordb provides vector store adapters.
// Both stores rank by brute-force cosine similarity.
package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// InMemoryStore keeps chunks in process memory, in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks []entities.Chunk
	byID   map[string]int // chunkID -> position in chunks
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID: make(map[string]int),
	}
}

// Store saves chunks with their embeddings. A chunk whose ID is already
// present replaces the stored one.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsert(chunks)
	return nil
}

// Search finds the topK chunks most similar to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(embedding, chunk.Embedding),
			SourceDoc: chunk.DocumentID,
		})
	}

	return rankTopK(results, topK), nil
}

// Delete removes all chunks for a document.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteDocument(documentID)
	return nil
}

// Replace swaps the chunks of documentID under a single lock, so searches
// never observe the document half replaced.
func (s *InMemoryStore) Replace(ctx context.Context, documentID string, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteDocument(documentID)
	s.upsert(chunks)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(nil)
	return nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *InMemoryStore) upsert(chunks []entities.Chunk) {
	for _, chunk := range chunks {
		if pos, ok := s.byID[chunk.ID]; ok {
			s.chunks[pos] = chunk
			continue
		}
		s.byID[chunk.ID] = len(s.chunks)
		s.chunks = append(s.chunks, chunk)
	}
}

func (s *InMemoryStore) deleteDocument(documentID string) {
	kept := make([]entities.Chunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if chunk.DocumentID != documentID {
			kept = append(kept, chunk)
		}
	}
	s.reset(kept)
}

func (s *InMemoryStore) reset(chunks []entities.Chunk) {
	s.chunks = chunks
	s.byID = make(map[string]int, len(chunks))
	for i, c := range chunks {
		s.byID[c.ID] = i
	}
}
