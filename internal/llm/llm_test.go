package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content:    []anthropicContent{{Type: "text", Text: "Joy is "}, {Type: "text", Text: "the remedy."}},
			Model:      "claude-test",
			StopReason: "end_turn",
			Usage:      anthropicUsage{InputTokens: 10, OutputTokens: 5},
		})
	}))
	defer ts.Close()

	p := NewAnthropicProvider("test-key", "claude-test")
	p.baseURL = ts.URL

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "You answer from sources."},
			{Role: RoleUser, Content: "What heals sadness?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != "Joy is the remedy." {
		t.Errorf("content: got %q", resp.Content)
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("usage: %+v", resp)
	}

	// System messages travel out of band, not in the messages array.
	if gotReq.System != "You answer from sources." {
		t.Errorf("system prompt: got %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("messages: %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 4096 {
		t.Errorf("default max tokens: got %d", gotReq.MaxTokens)
	}
}

func TestAnthropicAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(anthropicResponse{
			Error: &anthropicError{Type: "invalid_request_error", Message: "bad model"},
		})
	}))
	defer ts.Close()

	p := NewAnthropicProvider("test-key", "claude-test")
	p.baseURL = ts.URL

	_, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected API error")
	}
}

func TestOllamaComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:    ollamaMessage{Role: "assistant", Content: "answer"},
			Model:      req.Model,
			Done:       true,
			DoneReason: "stop",
		})
	}))
	defer ts.Close()

	p := NewOllamaProvider(ts.URL, "llama3")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "answer" || resp.Model != "llama3" {
		t.Errorf("response: %+v", resp)
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(Options{Provider: "anthropic", Model: "m"}); err == nil {
		t.Error("anthropic without key must fail")
	}
	if _, err := NewProvider(Options{Provider: "mystery", Model: "m"}); err == nil {
		t.Error("unknown provider must fail")
	}
	p, err := NewProvider(Options{Provider: "ollama", Model: "llama3"})
	if err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("name: got %q", p.Name())
	}

	// RPM wraps the provider but keeps its name.
	limited, err := NewProvider(Options{Provider: "ollama", Model: "llama3", RPM: 30})
	if err != nil {
		t.Fatalf("rate limited provider: %v", err)
	}
	if _, ok := limited.(*RateLimitedProvider); !ok {
		t.Errorf("expected rate limited wrapper, got %T", limited)
	}
	if limited.Name() != "ollama" {
		t.Errorf("wrapped name: got %q", limited.Name())
	}
}
