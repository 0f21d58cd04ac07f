// Package entities contains core business entities.
// These are pure domain objects with no external dependencies.
package entities

import (
	"strings"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Page is one page-level text unit extracted from a source document.
type Page struct {
	Number int // 1-based
	Text   string
}

// Document represents a source document (PDF, TXT, MD), loaded once and never mutated.
type Document struct {
	ID        string
	Name      string
	Path      string
	Pages     []Page
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Content returns the text of all pages separated by blank lines.
func (d *Document) Content() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// IsEmpty reports whether no page carries any non-whitespace text.
func (d *Document) IsEmpty() bool {
	return strings.TrimSpace(d.Content()) == ""
}

// Chunk is a bounded-length text segment derived from a Document.
// It is created once during ingestion and owned by the vector store afterwards.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int // Position in document
	Page       int // Source page, 0 when unknown
	Offset     int // Byte offset within the page text
	TokenCount int // Estimated, not exact
	Embedding  []float32
}

// QueryResult represents a search result with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string  // Document name for citation
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Prompt is the fully composed request handed to a language model.
type Prompt struct {
	Messages []ChatMessage
}

// Text flattens the prompt for logging and inspection.
func (p Prompt) Text() string {
	var sb strings.Builder
	for i, m := range p.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// ChatResponse represents the LLM's answer with sources.
type ChatResponse struct {
	Answer  string
	Sources []QueryResult
	Prompt  Prompt
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	DocumentID string
	Pages      int
	Segments   int
	Empty      bool // no page carried any text
}
