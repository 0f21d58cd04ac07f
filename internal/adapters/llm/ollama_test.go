package llm

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

var quietLogger = log.New(io.Discard, "", 0)

func testPrompt() entities.Prompt {
	return entities.Prompt{Messages: []entities.ChatMessage{
		{Role: entities.RoleSystem, Content: "You are useful assistant."},
		{Role: entities.RoleUser, Content: "Hi"},
	}}
}

func TestOllamaChat_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Hi" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		// Streaming response - newline delimited JSON
		w.Write([]byte(`{"message":{"role":"assistant","content":"Hello"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":" world"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":"!"},"done":true}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaChat(server.URL, "test-model", 0.7, 0, quietLogger)
	resp, err := adapter.Complete(context.Background(), testPrompt())

	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if resp != "Hello world!" {
		t.Errorf("unexpected response: %q", resp)
	}
}

func TestOllamaChat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaChat(server.URL, "test", 0, 0, quietLogger)
	if _, err := adapter.Complete(context.Background(), testPrompt()); err == nil {
		t.Error("should error on 500")
	}
}

func TestOllamaChat_StreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaChat(server.URL, "missing", 0, 0, quietLogger)
	if _, err := adapter.Complete(context.Background(), testPrompt()); err == nil {
		t.Error("should surface the stream error")
	}
}

func TestOllamaChat_TruncatedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":"partial"},"done":false}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaChat(server.URL, "test", 0, 0, quietLogger)
	if _, err := adapter.Complete(context.Background(), testPrompt()); err == nil {
		t.Error("should error when the stream never completes")
	}
}

func TestOllamaChat_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := NewOllamaChat(server.URL, "test", 0, 0, quietLogger)
	if _, err := adapter.Complete(ctx, testPrompt()); err == nil {
		t.Error("should error on cancelled context")
	}
}

func TestOllamaChat_DefaultValues(t *testing.T) {
	adapter := NewOllamaChat("", "", 0, 0, nil)
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
	if adapter.model != "llama3.2" {
		t.Error("should default to llama3.2")
	}
}
