package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

type stubLLM struct{ err error }

func (s stubLLM) Complete(ctx context.Context, p entities.Prompt) (string, error) {
	return "ok", s.err
}

type stubEmbedder struct{ err error }

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, s.err
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), s.err
}

type stubStore struct {
	n          int
	searchErr  error
	replaceErr error
}

func (s *stubStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.n += len(chunks)
	return nil
}

func (s *stubStore) Search(ctx context.Context, e []float32, k int) ([]entities.QueryResult, error) {
	return nil, s.searchErr
}

func (s *stubStore) Delete(ctx context.Context, id string) error { s.n = 0; return nil }
func (s *stubStore) Clear(ctx context.Context) error             { s.n = 0; return nil }
func (s *stubStore) Count(ctx context.Context) (int, error)      { return s.n, nil }

func (s *stubStore) Replace(ctx context.Context, id string, chunks []entities.Chunk) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.n = len(chunks)
	return nil
}

func TestInstrumentLLM(t *testing.T) {
	m := NewMetrics("test")
	ctx := context.Background()

	InstrumentLLM(stubLLM{}, m).Complete(ctx, entities.Prompt{})
	InstrumentLLM(stubLLM{err: errors.New("boom")}, m).Complete(ctx, entities.Prompt{})

	if got := testutil.ToFloat64(m.Errors.WithLabelValues(StageGenerate)); got != 1 {
		t.Errorf("generate errors = %f, want 1", got)
	}
	if got := testutil.CollectAndCount(m.LLMLatency); got != 1 {
		t.Errorf("expected latency histogram to be collected, got %d", got)
	}
}

func TestInstrumentEmbedder(t *testing.T) {
	m := NewMetrics("test")
	ctx := context.Background()

	e := InstrumentEmbedder(stubEmbedder{err: errors.New("down")}, m)
	e.Embed(ctx, "a")
	e.EmbedBatch(ctx, []string{"a", "b"})

	if got := testutil.ToFloat64(m.Errors.WithLabelValues(StageEmbed)); got != 2 {
		t.Errorf("embed errors = %f, want 2", got)
	}
}

func TestInstrumentStore_TracksSegments(t *testing.T) {
	m := NewMetrics("test")
	ctx := context.Background()
	store := InstrumentStore(&stubStore{}, m)

	store.Store(ctx, []entities.Chunk{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if got := testutil.ToFloat64(m.IndexedSegments); got != 3 {
		t.Errorf("indexed segments = %f, want 3", got)
	}

	store.Clear(ctx)
	if got := testutil.ToFloat64(m.IndexedSegments); got != 0 {
		t.Errorf("indexed segments after clear = %f, want 0", got)
	}
}

func TestInstrumentStore_Replace(t *testing.T) {
	m := NewMetrics("test")
	ctx := context.Background()
	inner := &stubStore{n: 5}
	store := InstrumentStore(inner, m)

	if err := store.Replace(ctx, "doc", []entities.Chunk{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if got := testutil.ToFloat64(m.IndexedSegments); got != 2 {
		t.Errorf("indexed segments = %f, want 2", got)
	}

	inner.replaceErr = errors.New("disk full")
	if err := store.Replace(ctx, "doc", nil); err == nil {
		t.Fatal("error should pass through")
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues(StageIngest)); got != 1 {
		t.Errorf("ingest errors = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.IndexedSegments); got != 2 {
		t.Errorf("failed replace changed the gauge to %f", got)
	}
}

func TestInstrumentStore_SearchErrors(t *testing.T) {
	m := NewMetrics("test")
	store := InstrumentStore(&stubStore{searchErr: errors.New("closed")}, m)

	if _, err := store.Search(context.Background(), []float32{1}, 4); err == nil {
		t.Fatal("error should pass through")
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues(StageSearch)); got != 1 {
		t.Errorf("search errors = %f, want 1", got)
	}
}

func TestMetrics_ObserveTurn(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveTurn(nil, 2)
	m.ObserveTurn(errors.New("failed"), 2)
	m.ObserveTurn(nil, 4)

	if got := testutil.ToFloat64(m.Turns); got != 2 {
		t.Errorf("turns = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.SessionMessages); got != 4 {
		t.Errorf("session messages = %f, want 4", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("docchat")
	m.Turns.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "docchat_turns_total 1") {
		t.Errorf("turn counter missing from output:\n%s", body)
	}
}

func TestNewMetrics_Independent(t *testing.T) {
	// two instances must not collide on registration
	a := NewMetrics("docchat")
	b := NewMetrics("docchat")
	a.Turns.Inc()

	if testutil.ToFloat64(b.Turns) != 0 {
		t.Error("registries should be independent")
	}
}
