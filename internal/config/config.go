// Package config loads the docchat configuration: a YAML file, then
// environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "docchat.yaml"

// Provider and store names.
const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderHashing = "hashing"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// RetrievalConfig controls how many segments reach the prompt.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// ChunkerConfig configures how pages are split into segments.
type ChunkerConfig struct {
	ChunkSize             int `yaml:"chunk_size"`
	MinChunkSizeChars     int `yaml:"min_chunk_size_chars"`
	MinChunkLengthToEmbed int `yaml:"min_chunk_length_to_embed"`
	MaxNumChunks          int `yaml:"max_num_chunks"`
	Overlap               int `yaml:"overlap"`
}

// MemoryConfig bounds the conversation memory. Zero means unbounded.
type MemoryConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

// LLMConfig selects and configures the language model.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// EmbedderConfig selects and configures the embedding service.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"` // hashing embedder only
}

// VectorStoreConfig selects the vector store implementation.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// OpenAIConfig holds endpoint settings. The API key only comes from the
// environment.
type OpenAIConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
}

// OllamaConfig holds the Ollama endpoint.
type OllamaConfig struct {
	Host string `yaml:"host"`
}

// Config is the root application configuration.
type Config struct {
	Document     string `yaml:"document"`
	Greeting     string `yaml:"greeting"`
	SystemPrompt string `yaml:"system_prompt"`
	Watch        bool   `yaml:"watch"`
	MetricsAddr  string `yaml:"metrics_addr"`

	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Memory      MemoryConfig      `yaml:"memory"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Ollama      OllamaConfig      `yaml:"ollama"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Document:     "docs/hurricane-milton.txt",
		Greeting:     "I am your Hurricane Milton assistant.",
		SystemPrompt: "You are useful assistant, expert in hurricanes.",
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		Chunker: ChunkerConfig{
			ChunkSize:             800,
			MinChunkSizeChars:     350,
			MinChunkLengthToEmbed: 5,
			MaxNumChunks:          10000,
		},
		Memory: MemoryConfig{MaxMessages: 100},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
		},
		Embedder: EmbedderConfig{
			Provider:  ProviderOpenAI,
			Model:     "text-embedding-3-small",
			Dimension: 512,
		},
		VectorStore: VectorStoreConfig{Type: StoreMemory, DSN: ":memory:"},
		Ollama:      OllamaConfig{Host: "http://localhost:11434"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	c.Document = getEnv("DOCCHAT_DOCUMENT", c.Document)
	c.SystemPrompt = getEnv("DOCCHAT_SYSTEM_PROMPT", c.SystemPrompt)
	c.MetricsAddr = getEnv("DOCCHAT_METRICS_ADDR", c.MetricsAddr)
	c.Watch = getEnvBool("DOCCHAT_WATCH", c.Watch)

	c.Retrieval.TopK = getEnvInt("DOCCHAT_TOP_K", c.Retrieval.TopK)
	c.Memory.MaxMessages = getEnvInt("DOCCHAT_MAX_MESSAGES", c.Memory.MaxMessages)

	c.LLM.Provider = getEnv("DOCCHAT_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("DOCCHAT_CHAT_MODEL", c.LLM.Model)
	c.LLM.Temperature = getEnvFloat("DOCCHAT_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvDuration("OPENAI_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = getEnvInt("OPENAI_MAX_RETRIES", c.LLM.MaxRetries)
	c.LLM.RetryDelay = getEnvDuration("OPENAI_RETRY_DELAY", c.LLM.RetryDelay)

	c.Embedder.Provider = getEnv("DOCCHAT_EMBEDDER_PROVIDER", c.Embedder.Provider)
	c.Embedder.Model = getEnv("DOCCHAT_EMBEDDING_MODEL", c.Embedder.Model)

	c.VectorStore.Type = getEnv("DOCCHAT_VECTOR_STORE", c.VectorStore.Type)

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.Ollama.Host = getEnv("OLLAMA_HOST", c.Ollama.Host)
}

// Validate rejects values the application cannot run with.
func (c *Config) Validate() error {
	if c.Document == "" {
		return errors.New("document path is required")
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be 0-1, got %f", c.Retrieval.SimilarityThreshold)
	}
	if c.Chunker.ChunkSize < 1 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.MinChunkSizeChars < 0 || c.Chunker.MinChunkLengthToEmbed < 0 {
		return errors.New("chunker minimum sizes cannot be negative")
	}
	if c.Chunker.MaxNumChunks < 1 {
		return fmt.Errorf("chunker.max_num_chunks must be positive, got %d", c.Chunker.MaxNumChunks)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunker.overlap must be 0 to chunk_size-1, got %d", c.Chunker.Overlap)
	}
	if c.Memory.MaxMessages < 0 || c.Memory.MaxMessages%2 != 0 {
		return fmt.Errorf("memory.max_messages must be a non-negative even number, got %d", c.Memory.MaxMessages)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be 0-2, got %f", c.LLM.Temperature)
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 10 {
		return fmt.Errorf("llm.max_retries must be 0-10, got %d", c.LLM.MaxRetries)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Embedder.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderHashing:
	default:
		return fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider)
	}
	switch c.VectorStore.Type {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unknown vector store %q", c.VectorStore.Type)
	}

	if c.OpenAI.APIKey == "" && (c.LLM.Provider == ProviderOpenAI || c.Embedder.Provider == ProviderOpenAI) {
		return errors.New("OPENAI_API_KEY is required for the openai provider")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
