// Package llm provides the language-model adapters.
// Adapters implement ports.LanguageModel; retries live here, never in
// the chat usecase.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// OllamaChat implements ports.LanguageModel using the Ollama chat API.
type OllamaChat struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
	logger      *log.Logger
}

// NewOllamaChat creates a new Ollama chat adapter.
func NewOllamaChat(baseURL, model string, temperature float64, timeout time.Duration, logger *log.Logger) *OllamaChat {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OllamaChat{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

// ollamaChatChunk is one line of the newline-delimited chat response.
type ollamaChatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Complete sends the prompt and returns the assembled answer. The reply is
// streamed by Ollama and concatenated here.
func (a *OllamaChat) Complete(ctx context.Context, prompt entities.Prompt) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    a.model,
		Messages: make([]ollamaMessage, len(prompt.Messages)),
		Stream:   true,
		Options:  map[string]any{"temperature": a.temperature},
	}
	for i, m := range prompt.Messages {
		reqBody.Messages[i] = ollamaMessage{Role: string(m.Role), Content: m.Content}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	a.logger.Printf("[DEBUG] Chat request to %s with %d messages", a.model, len(prompt.Messages))
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue // Skip malformed lines
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("Ollama error: %s", chunk.Error)
		}

		answer.WriteString(chunk.Message.Content)
		if chunk.Done {
			return answer.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return "", fmt.Errorf("Ollama stream ended before completion")
}
