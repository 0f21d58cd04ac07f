// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, adapters implement them, and
// decorators (retry, metrics) wrap them without touching usecase logic.
package ports

import (
	"context"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LanguageModel turns a composed prompt into a text completion.
type LanguageModel interface {
	Complete(ctx context.Context, prompt entities.Prompt) (string, error)
}

// VectorStore persists and queries document embeddings.
type VectorStore interface {
	// Store saves chunks with their embeddings.
	Store(ctx context.Context, chunks []entities.Chunk) error

	// Search finds the most similar chunks to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)

	// Delete removes all chunks for a document.
	Delete(ctx context.Context, documentID string) error

	// Replace swaps a document's chunks for the given ones in one step.
	// On error the previous chunks are still in place.
	Replace(ctx context.Context, documentID string, chunks []entities.Chunk) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	// Load reads a document from the given path, one Page per page.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// Splitter cuts one page of text into bounded segments.
type Splitter interface {
	Split(text string) []Segment
}

// Segment is a splitter output before it becomes a Chunk.
type Segment struct {
	Content    string
	Offset     int
	TokenCount int
}

// FileWatcher monitors a file for changes.
type FileWatcher interface {
	// WatchFile starts monitoring path and emits events for it.
	WatchFile(ctx context.Context, path string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
