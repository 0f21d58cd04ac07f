// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// IngestUseCase loads a document, splits every page, embeds the segments
// and hands them to the vector store.
type IngestUseCase struct {
	loader      ports.DocumentLoader
	splitter    ports.Splitter
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	splitter ports.Splitter,
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
) *IngestUseCase {
	return &IngestUseCase{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
	}
}

// IngestPath loads the document at path and ingests it.
// A document that cannot be read or parsed is an error; nothing is stored.
func (uc *IngestUseCase) IngestPath(ctx context.Context, path string) (entities.IngestResult, error) {
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return entities.IngestResult{}, fmt.Errorf("loading document %s: %w", path, err)
	}
	return uc.Ingest(ctx, doc)
}

// Ingest processes a document: splits it, embeds it, stores it.
// An empty document succeeds with zero segments.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) (entities.IngestResult, error) {
	result, chunks, err := uc.prepare(ctx, doc)
	if err != nil || len(chunks) == 0 {
		return result, err
	}

	if err := uc.vectorStore.Store(ctx, chunks); err != nil {
		return result, fmt.Errorf("storing segments: %w", err)
	}

	result.Segments = len(chunks)
	return result, nil
}

// Reingest reloads the document at path and replaces its segments.
// The new segments are embedded before anything is removed, so the
// previous segments stay in place when loading, embedding or storing fails.
func (uc *IngestUseCase) Reingest(ctx context.Context, path string) (entities.IngestResult, error) {
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return entities.IngestResult{}, fmt.Errorf("loading document %s: %w", path, err)
	}

	result, chunks, err := uc.prepare(ctx, doc)
	if err != nil {
		return result, err
	}

	if err := uc.vectorStore.Replace(ctx, doc.ID, chunks); err != nil {
		return result, fmt.Errorf("replacing segments: %w", err)
	}

	result.Segments = len(chunks)
	return result, nil
}

// prepare splits and embeds doc without touching the store.
func (uc *IngestUseCase) prepare(ctx context.Context, doc *entities.Document) (entities.IngestResult, []entities.Chunk, error) {
	result := entities.IngestResult{
		DocumentID: doc.ID,
		Pages:      len(doc.Pages),
		Empty:      doc.IsEmpty(),
	}

	chunks := uc.chunkDocument(doc)
	if len(chunks) == 0 {
		return result, nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result, nil, fmt.Errorf("embedding segments: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return result, nil, fmt.Errorf("embedding segments: got %d vectors for %d segments", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return result, chunks, nil
}

// chunkDocument splits each page independently so that segments keep
// their page affiliation.
func (uc *IngestUseCase) chunkDocument(doc *entities.Document) []entities.Chunk {
	var chunks []entities.Chunk
	index := 0

	for _, page := range doc.Pages {
		for _, seg := range uc.splitter.Split(page.Text) {
			chunks = append(chunks, entities.Chunk{
				ID:         generateChunkID(doc.ID, index),
				DocumentID: doc.ID,
				Content:    seg.Content,
				Index:      index,
				Page:       page.Number,
				Offset:     seg.Offset,
				TokenCount: seg.TokenCount,
			})
			index++
		}
	}

	return chunks
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, index int) string {
	hash := sha256.Sum256([]byte(docID + ":" + strconv.Itoa(index)))
	return hex.EncodeToString(hash[:8])
}
