// Package loader provides document loading adapters.
// Every loader yields one text unit per page.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

// pageBreak separates pages in plain text files.
const pageBreak = "\f"

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path. Form feeds split pages.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pages []entities.Page
	for i, text := range strings.Split(string(content), pageBreak) {
		pages = append(pages, entities.Page{Number: i + 1, Text: text})
	}

	return newDocument(path, pages)
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader extracts text from PDF documents page by page.
type PDFLoader struct {
	logger *log.Logger
}

// NewPDFLoader creates a PDF loader.
func NewPDFLoader(logger *log.Logger) *PDFLoader {
	if logger == nil {
		logger = log.Default()
	}
	return &PDFLoader{logger: logger}
}

// Load reads every page of the PDF at path. A file that cannot be opened
// or parsed is an error; extraction warnings are logged.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	pages := make([]entities.Page, 0, count)
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, warnings, err := tabula.FromReader(r).Pages(n).Text()
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", n, err)
		}
		if len(warnings) > 0 {
			l.logger.Printf("[WARN] %s page %d: %d extraction warnings", filepath.Base(path), n, len(warnings))
		}
		pages = append(pages, entities.Page{Number: n, Text: text})
	}

	l.logger.Printf("[DEBUG] Extracted %d pages from %s", len(pages), path)
	return newDocument(path, pages)
}

// SupportedExtensions returns file extensions.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches to a loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader that handles text and PDF files.
func NewMultiLoader(logger *log.Logger) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	m.Register(NewTextLoader())
	m.Register(NewPDFLoader(logger))
	return m
}

// Register adds l for every extension it supports, replacing earlier ones.
func (m *MultiLoader) Register(l ports.DocumentLoader) {
	for _, ext := range l.SupportedExtensions() {
		m.loaders[strings.ToLower(ext)] = l
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported document type %q", ext)
	}
	return l.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func newDocument(path string, pages []entities.Page) (*entities.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	for i := range pages {
		pages[i].Text = cleanText(pages[i].Text)
	}

	return &entities.Document{
		ID:        generateDocID(abs),
		Name:      filepath.Base(path),
		Path:      path,
		Pages:     pages,
		CreatedAt: info.ModTime(),
		UpdatedAt: time.Now(),
	}, nil
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// cleanText drops control characters other than newline and tab.
func cleanText(content string) string {
	var cleaned strings.Builder
	cleaned.Grow(len(content))
	for _, r := range content {
		if r >= 32 && r != 127 && r != '�' || r == '\n' || r == '\t' {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
