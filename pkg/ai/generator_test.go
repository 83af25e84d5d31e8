package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaGeneratorChat(t *testing.T) {
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaChatMessage{Role: "assistant", Content: "hello there"}})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(NewOllamaClient(srv.URL), "llama3")
	text, err := gen.GenerateText(context.Background(), "be brief", "say hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("unexpected text: %q", text)
	}
	if gotReq.Model != "llama3" || gotReq.Stream {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "say hello" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestOllamaGeneratorAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ollamaErrorResponse{Error: "model not loaded"})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(NewOllamaClient(srv.URL), "llama3")
	if _, err := gen.GenerateText(context.Background(), "", "hi"); err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestOllamaGeneratorRequiresModel(t *testing.T) {
	gen := NewOllamaGenerator(NewOllamaClient(""), "")
	if _, err := gen.GenerateText(context.Background(), "", "hi"); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestOpenAICompatGeneratorChat(t *testing.T) {
	var gotAuth string
	var gotReq oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  padded reply  "}}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/v1", "sk-test", "gpt-test")
	text, err := gen.GenerateText(context.Background(), "be brief", "say hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "padded reply" {
		t.Fatalf("expected trimmed reply, got %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Model != "gpt-test" || len(gotReq.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
}

func TestOpenAICompatGeneratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL, "", "gpt-test")
	if _, err := gen.GenerateText(context.Background(), "", "hi"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
