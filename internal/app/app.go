// Package app wires configuration, adapters and use cases into the
// docchat process: index the document, then chat over stdin/stdout.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/0xcro3dile/docchat-go/internal/adapters/embedding"
	"github.com/0xcro3dile/docchat-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docchat-go/internal/adapters/llm"
	"github.com/0xcro3dile/docchat-go/internal/adapters/loader"
	"github.com/0xcro3dile/docchat-go/internal/adapters/splitter"
	"github.com/0xcro3dile/docchat-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/docchat-go/internal/config"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
	"github.com/0xcro3dile/docchat-go/internal/domain/session"
	"github.com/0xcro3dile/docchat-go/internal/domain/usecases"
	"github.com/0xcro3dile/docchat-go/internal/infrastructure/console"
	httpserver "github.com/0xcro3dile/docchat-go/internal/infrastructure/http"
	"github.com/0xcro3dile/docchat-go/internal/observability"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "docchat"

// App owns the collaborators of one docchat process.
type App struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *observability.Metrics

	store   ports.VectorStore
	ingest  *usecases.IngestUseCase
	chat    *usecases.ChatUseCase
	session *session.Session

	closers []io.Closer
}

// New builds the application from cfg. Nothing touches the network or the
// document until Run.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(metricsNamespace),
	}

	embedder, err := a.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	model, err := a.newLanguageModel()
	if err != nil {
		return nil, fmt.Errorf("creating language model: %w", err)
	}
	store, err := a.newVectorStore()
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	embedder = observability.InstrumentEmbedder(embedder, a.metrics)
	model = observability.InstrumentLLM(model, a.metrics)
	a.store = observability.InstrumentStore(store, a.metrics)

	docs := loader.NewMultiLoader(logger)

	split := splitter.NewTokenSplitter(splitter.Options{
		ChunkSize:             cfg.Chunker.ChunkSize,
		MinChunkSizeChars:     cfg.Chunker.MinChunkSizeChars,
		MinChunkLengthToEmbed: cfg.Chunker.MinChunkLengthToEmbed,
		MaxNumChunks:          cfg.Chunker.MaxNumChunks,
		Overlap:               cfg.Chunker.Overlap,
	})

	a.session, err = session.New(cfg.Memory.MaxMessages)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	a.ingest = usecases.NewIngestUseCase(docs, split, embedder, a.store)
	a.chat = usecases.NewChatUseCase(embedder, a.store, model, usecases.ChatOptions{
		SystemPrompt:        cfg.SystemPrompt,
		TopK:                cfg.Retrieval.TopK,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
	})

	return a, nil
}

// Metrics returns the application's instruments.
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// Session returns the conversation memory of this process.
func (a *App) Session() *session.Session {
	return a.session
}

// Run indexes the document and then serves the chat loop on in/out until
// the input ends, ctx is cancelled or a turn fails. A document that cannot
// be indexed is an error and the loop never starts.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result, err := a.ingest.IngestPath(ctx, a.cfg.Document)
	if err != nil {
		a.metrics.Errors.WithLabelValues(observability.StageIngest).Inc()
		return fmt.Errorf("indexing document: %w", err)
	}
	a.logger.Printf("[INFO] Indexed %s: %d pages, %d segments", a.cfg.Document, result.Pages, result.Segments)
	if result.Empty {
		a.logger.Printf("[WARN] %s has no extractable text, answers will have no document context", a.cfg.Document)
	}

	if a.cfg.MetricsAddr != "" {
		srv := httpserver.NewServer(a.cfg.MetricsAddr, a.metrics.Handler(), a.status, a.logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				a.logger.Printf("[ERROR] Metrics server: %v", err)
			}
		}()
	}

	var opts []console.Option
	if a.cfg.Watch {
		hook, err := a.watchDocument(ctx)
		if err != nil {
			return fmt.Errorf("watching document: %w", err)
		}
		opts = append(opts, console.WithBeforeTurn(hook))
	}

	repl := console.New(in, out, a.cfg.Greeting, a.turn, opts...)
	return repl.Run(ctx)
}

// Close releases the vector store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) turn(ctx context.Context, line string) (string, error) {
	resp, err := a.chat.Chat(ctx, a.session, line)
	a.metrics.ObserveTurn(err, a.session.Len())
	if err != nil {
		return "", err
	}
	a.logger.Printf("[DEBUG] Prompt:\n%s", resp.Prompt.Text())
	a.logger.Printf("[DEBUG] Answered from %d segments, session holds %d messages", len(resp.Sources), a.session.Len())
	return resp.Answer, nil
}

// watchDocument starts the file watcher and returns the hook that applies
// pending changes between turns.
func (a *App) watchDocument(ctx context.Context) (console.HookFunc, error) {
	w, err := filewatcher.NewFSNotifyWatcher(a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closerFunc(w.Stop))

	events, err := w.WatchFile(ctx, a.cfg.Document)
	if err != nil {
		return nil, err
	}
	a.logger.Printf("[INFO] Watching %s for changes", a.cfg.Document)

	return func(ctx context.Context) {
		if changed := drain(events, a.logger); changed {
			a.reindex(ctx)
		}
	}, nil
}

// reindex replaces the document's segments. The previous index is kept
// when the new version cannot be indexed.
func (a *App) reindex(ctx context.Context) {
	result, err := a.ingest.Reingest(ctx, a.cfg.Document)
	if err != nil {
		a.metrics.Errors.WithLabelValues(observability.StageIngest).Inc()
		a.logger.Printf("[WARN] Re-indexing %s failed, keeping previous index: %v", a.cfg.Document, err)
		return
	}
	a.logger.Printf("[INFO] Re-indexed %s: %d segments", a.cfg.Document, result.Segments)
	if result.Empty {
		a.logger.Printf("[WARN] %s has no extractable text after the change", a.cfg.Document)
	}
}

// drain consumes every pending event without blocking and reports whether
// the document was written or recreated.
func drain(events <-chan ports.FileEvent, logger *log.Logger) bool {
	changed := false
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return changed
			}
			logger.Printf("[DEBUG] %s %s", ev.Path, ev.Operation)
			if ev.Operation == ports.FileDeleted {
				logger.Printf("[WARN] %s was removed, keeping previous index", ev.Path)
				continue
			}
			changed = true
		default:
			return changed
		}
	}
}

func (a *App) status(ctx context.Context) (map[string]any, error) {
	n, err := a.store.Count(ctx)
	return map[string]any{
		"document":     a.cfg.Document,
		"segments":     n,
		"messages":     a.session.Len(),
		"evicted":      a.session.Evicted(),
		"max_messages": a.session.MaxMessages(),
	}, err
}

func (a *App) newEmbedder() (ports.EmbeddingService, error) {
	cfg := a.cfg
	switch cfg.Embedder.Provider {
	case config.ProviderOpenAI:
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.Embedder.Model,
			MaxRetries: cfg.LLM.MaxRetries,
			RetryDelay: cfg.LLM.RetryDelay,
		}, a.logger)
	case config.ProviderOllama:
		model := cfg.Embedder.Model
		if model == string(embedding.DefaultOpenAIModel) {
			model = ""
		}
		return embedding.NewOllamaEmbedder(cfg.Ollama.Host, model, a.logger), nil
	case config.ProviderHashing:
		return embedding.NewHashingEmbedder(cfg.Embedder.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
}

func (a *App) newLanguageModel() (ports.LanguageModel, error) {
	cfg := a.cfg
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIChat(llm.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
			RetryDelay:  cfg.LLM.RetryDelay,
		}, a.logger)
	case config.ProviderOllama:
		model := cfg.LLM.Model
		if model == llm.DefaultOpenAIModel {
			model = ""
		}
		return llm.NewOllamaChat(cfg.Ollama.Host, model, cfg.LLM.Temperature, cfg.LLM.Timeout, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func (a *App) newVectorStore() (ports.VectorStore, error) {
	switch a.cfg.VectorStore.Type {
	case config.StoreMemory:
		return vectordb.NewInMemoryStore(), nil
	case config.StoreSQLite:
		s, err := vectordb.NewSQLiteStore(a.cfg.VectorStore.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", a.cfg.VectorStore.Type)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
