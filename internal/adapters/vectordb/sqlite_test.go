package vectordb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

func TestSQLiteStore_RoundTripsChunkFields(t *testing.T) {
	store, err := NewSQLiteStore("")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	in := entities.Chunk{
		ID:         "c1",
		DocumentID: "doc1",
		Content:    "Milton weakened to a Category 3 hurricane.",
		Index:      7,
		Page:       3,
		Offset:     120,
		TokenCount: 11,
		Embedding:  []float32{0.25, -0.5, 0.125},
	}
	if err := store.Store(ctx, []entities.Chunk{in}); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	results, err := store.Search(ctx, []float32{0.25, -0.5, 0.125}, 1)
	if err != nil || len(results) != 1 {
		t.Fatalf("search failed: %v (%d results)", err, len(results))
	}

	got := results[0].Chunk
	if got.Page != 3 || got.Offset != 120 || got.TokenCount != 11 || got.Index != 7 {
		t.Errorf("metadata lost: %+v", got)
	}
	for i := range in.Embedding {
		if got.Embedding[i] != in.Embedding[i] {
			t.Fatalf("embedding mismatch: %v vs %v", got.Embedding, in.Embedding)
		}
	}
}

func TestSQLiteStore_FileDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Store(ctx, []entities.Chunk{{ID: "c1", DocumentID: "d", Embedding: []float32{1}}}); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("expected 1 chunk, got %d", count)
	}
}

func TestEmbeddingCodec(t *testing.T) {
	in := []float32{1.5, -2, 0, 3.25}
	out, err := decodeEmbedding(encodeEmbedding(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("value %d = %f, want %f", i, out[i], in[i])
		}
	}

	if _, err := decodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestSQLiteStore_FailedReplaceKeepsChunks(t *testing.T) {
	store, err := NewSQLiteStore(DefaultSQLiteDSN)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Store(ctx, []entities.Chunk{{ID: "c1", DocumentID: "doc", Content: "kept", Embedding: []float32{1}}})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Replace(cancelled, "doc", nil); err == nil {
		t.Fatal("expected error on cancelled context")
	}

	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("previous chunk should be kept, count = %d", count)
	}
}
