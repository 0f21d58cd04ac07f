package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/util"
)

const (
	// DefaultOpenAIModel is the chat model used when none is configured.
	DefaultOpenAIModel = openai.GPT4oMini
	// DefaultTemperature matches the chat client defaults.
	DefaultTemperature = 0.7
)

// OpenAIConfig holds configuration for the OpenAI chat adapter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// OpenAIChat implements ports.LanguageModel with chat completions,
// retrying failed calls with exponential backoff.
type OpenAIChat struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	logger      *log.Logger
}

// NewOpenAIChat creates the adapter. An API key is required.
func NewOpenAIChat(cfg OpenAIConfig, logger *log.Logger) (*OpenAIChat, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	// The client drops a zero temperature from the request, which leaves
	// the server default in effect.
	if cfg.Temperature == 0 {
		cfg.Temperature = math.SmallestNonzeroFloat32
	}
	if logger == nil {
		logger = log.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIChat{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		logger:      logger,
	}, nil
}

// Complete sends the prompt and returns the first choice's content.
func (c *OpenAIChat) Complete(ctx context.Context, prompt entities.Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(prompt.Messages))
	for i, m := range prompt.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: chatRole(m.Role), Content: m.Content}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Printf("[WARN] Chat completion attempt %d failed: %v", attempt, lastErr)
			if err := util.Sleep(ctx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return "", err
			}
		}

		answer, err := c.complete(ctx, messages)
		if err == nil {
			return answer, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if ctx.Err() != nil {
			return "", lastErr
		}
	}

	return "", fmt.Errorf("chat completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *OpenAIChat) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	c.logger.Printf("[DEBUG] Chat completion used %d tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

func chatRole(r entities.Role) string {
	switch r {
	case entities.RoleSystem:
		return openai.ChatMessageRoleSystem
	case entities.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
