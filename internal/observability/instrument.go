package observability

import (
	"context"
	"time"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
)

type instrumentedLLM struct {
	next    ports.LanguageModel
	metrics *Metrics
}

// InstrumentLLM wraps llm so that latency and failures are recorded.
func InstrumentLLM(llm ports.LanguageModel, m *Metrics) ports.LanguageModel {
	return &instrumentedLLM{next: llm, metrics: m}
}

func (l *instrumentedLLM) Complete(ctx context.Context, prompt entities.Prompt) (string, error) {
	start := time.Now()
	answer, err := l.next.Complete(ctx, prompt)
	observeMillis(l.metrics.LLMLatency, start)
	if err != nil {
		l.metrics.Errors.WithLabelValues(StageGenerate).Inc()
	}
	return answer, err
}

type instrumentedEmbedder struct {
	next    ports.EmbeddingService
	metrics *Metrics
}

// InstrumentEmbedder wraps embedder so that latency and failures are recorded.
func InstrumentEmbedder(embedder ports.EmbeddingService, m *Metrics) ports.EmbeddingService {
	return &instrumentedEmbedder{next: embedder, metrics: m}
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := e.next.Embed(ctx, text)
	e.observe(start, err)
	return v, err
}

func (e *instrumentedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := e.next.EmbedBatch(ctx, texts)
	e.observe(start, err)
	return v, err
}

func (e *instrumentedEmbedder) observe(start time.Time, err error) {
	observeMillis(e.metrics.EmbedLatency, start)
	if err != nil {
		e.metrics.Errors.WithLabelValues(StageEmbed).Inc()
	}
}

type instrumentedStore struct {
	next    ports.VectorStore
	metrics *Metrics
}

// InstrumentStore wraps store so that search latency and the indexed
// segment count are recorded.
func InstrumentStore(store ports.VectorStore, m *Metrics) ports.VectorStore {
	return &instrumentedStore{next: store, metrics: m}
}

func (s *instrumentedStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	err := s.next.Store(ctx, chunks)
	if err != nil {
		s.metrics.Errors.WithLabelValues(StageIngest).Inc()
	}
	s.refreshCount(ctx)
	return err
}

func (s *instrumentedStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	start := time.Now()
	results, err := s.next.Search(ctx, embedding, topK)
	observeMillis(s.metrics.SearchLatency, start)
	if err != nil {
		s.metrics.Errors.WithLabelValues(StageSearch).Inc()
	}
	return results, err
}

func (s *instrumentedStore) Delete(ctx context.Context, documentID string) error {
	err := s.next.Delete(ctx, documentID)
	s.refreshCount(ctx)
	return err
}

func (s *instrumentedStore) Replace(ctx context.Context, documentID string, chunks []entities.Chunk) error {
	err := s.next.Replace(ctx, documentID, chunks)
	if err != nil {
		s.metrics.Errors.WithLabelValues(StageIngest).Inc()
	}
	s.refreshCount(ctx)
	return err
}

func (s *instrumentedStore) Clear(ctx context.Context) error {
	err := s.next.Clear(ctx)
	s.refreshCount(ctx)
	return err
}

func (s *instrumentedStore) Count(ctx context.Context) (int, error) {
	return s.next.Count(ctx)
}

func (s *instrumentedStore) refreshCount(ctx context.Context) {
	if n, err := s.next.Count(ctx); err == nil {
		s.metrics.IndexedSegments.Set(float64(n))
	}
}
