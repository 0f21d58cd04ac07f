// Package usecases - chat.go answers one user utterance from retrieved
// document context plus the session's conversation memory.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/ports"
	"github.com/0xcro3dile/docchat-go/internal/domain/session"
)

// DefaultTopK is the number of segments retrieved per question.
const DefaultTopK = 4

// contextTemplate wraps retrieved segments before they are appended to the
// system instruction. %s is replaced by the segments.
const contextTemplate = `Context information is below, surrounded by ---------------------

---------------------
%s
---------------------

Given the context and provided history information and not prior knowledge,
reply to the user comment. If the answer is not in the context, inform
the user that you can't answer the question.`

// ChatOptions configures prompt composition and retrieval.
type ChatOptions struct {
	SystemPrompt        string
	TopK                int
	SimilarityThreshold float64
}

// ChatUseCase is the retrieval-augmented chat orchestrator.
// It never retries; retry policies belong to the LanguageModel adapter.
type ChatUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	llm         ports.LanguageModel
	opts        ChatOptions
}

// NewChatUseCase creates a ChatUseCase with injected dependencies.
func NewChatUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	llm ports.LanguageModel,
	opts ChatOptions,
) *ChatUseCase {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &ChatUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		llm:         llm,
		opts:        opts,
	}
}

// Chat answers userMessage. The message is passed through unchanged, empty
// input included. On success the user turn and the answer are appended to
// sess; on failure sess is left untouched and the error is returned.
func (uc *ChatUseCase) Chat(ctx context.Context, sess *session.Session, userMessage string) (*entities.ChatResponse, error) {
	sources, err := uc.Retrieve(ctx, userMessage)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	prompt := uc.BuildPrompt(sources, sess.Messages(), userMessage)

	answer, err := uc.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	sess.AppendExchange(userMessage, answer)

	return &entities.ChatResponse{
		Answer:  answer,
		Sources: sources,
		Prompt:  prompt,
	}, nil
}

// Retrieve returns the top-K segments most similar to query, best first.
func (uc *ChatUseCase) Retrieve(ctx context.Context, query string) ([]entities.QueryResult, error) {
	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := uc.vectorStore.Search(ctx, embedding, uc.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	if uc.opts.SimilarityThreshold <= 0 {
		return results, nil
	}
	kept := results[:0]
	for _, r := range results {
		if r.Score >= uc.opts.SimilarityThreshold {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// BuildPrompt composes the system instruction with the retrieved context,
// the prior turns in chronological order, and the new user turn.
func (uc *ChatUseCase) BuildPrompt(sources []entities.QueryResult, history []entities.ChatMessage, userMessage string) entities.Prompt {
	messages := make([]entities.ChatMessage, 0, len(history)+2)
	messages = append(messages, entities.ChatMessage{
		Role:    entities.RoleSystem,
		Content: uc.systemMessage(sources),
	})
	messages = append(messages, history...)
	messages = append(messages, entities.ChatMessage{
		Role:    entities.RoleUser,
		Content: userMessage,
	})
	return entities.Prompt{Messages: messages}
}

func (uc *ChatUseCase) systemMessage(sources []entities.QueryResult) string {
	parts := make([]string, len(sources))
	for i, r := range sources {
		parts[i] = r.Chunk.Content
	}

	var sb strings.Builder
	if uc.opts.SystemPrompt != "" {
		sb.WriteString(uc.opts.SystemPrompt)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf(contextTemplate, strings.Join(parts, "\n")))
	return sb.String()
}
