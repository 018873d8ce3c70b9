package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeneratorProviders(t *testing.T) {
	cases := []struct {
		provider string
		check    func(TextGenerator) bool
	}{
		{"", func(g TextGenerator) bool { _, ok := g.(*OpenAICompatGenerator); return ok }},
		{ProviderOpenAI, func(g TextGenerator) bool { _, ok := g.(*OpenAICompatGenerator); return ok }},
		{ProviderOllama, func(g TextGenerator) bool { _, ok := g.(*OllamaGenerator); return ok }},
		{ProviderGemini, func(g TextGenerator) bool { _, ok := g.(*GeminiGenerator); return ok }},
	}
	for _, tc := range cases {
		gen, err := NewGenerator(GeneratorConfig{Provider: tc.provider, APIKey: "k"})
		if err != nil {
			t.Fatalf("%q: new generator: %v", tc.provider, err)
		}
		if !tc.check(gen) {
			t.Fatalf("%q: unexpected generator type %T", tc.provider, gen)
		}
	}
	if _, err := NewGenerator(GeneratorConfig{Provider: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestOllamaGenerateText(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"answer"}}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(NewOllamaClient(srv.URL), "llama3", 256)
	text, err := gen.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "answer" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Stream || got.Options == nil || got.Options.NumPredict != 256 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(NewOllamaClient(srv.URL), "missing", 0)
	_, err := gen.GenerateText(context.Background(), "", "user")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "model not found" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestGeminiGenerateText(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("missing api key")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gemini answer"}]}}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("g-key")
	client.baseURL = srv.URL
	gen := NewGeminiGenerator(client, "models/gemini-2.0-flash", 128)
	text, err := gen.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "gemini answer" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.SystemInstruction == nil || got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 128 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestGeminiQuotaStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("g-key")
	client.baseURL = srv.URL
	_, err := NewGeminiGenerator(client, "gemini-2.0-flash", 0).GenerateText(context.Background(), "", "user")
	if !errors.Is(Classify(err), ErrQuotaExceeded) {
		t.Fatalf("expected quota classification, got %v", err)
	}
}

func TestGeminiMissingKey(t *testing.T) {
	_, err := NewGeminiGenerator(NewGeminiClient(""), "gemini-2.0-flash", 0).GenerateText(context.Background(), "", "user")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if !strings.Contains(err.Error(), GeminiCredentialEnvVar) {
		t.Fatalf("error should name %s, got %v", GeminiCredentialEnvVar, err)
	}
}

func TestNewGeneratorDefaultModelPerProvider(t *testing.T) {
	gen, err := NewGenerator(GeneratorConfig{Provider: ProviderOllama})
	if err != nil {
		t.Fatalf("new ollama generator: %v", err)
	}
	if got := gen.(*OllamaGenerator).model; got != DefaultOllamaModel {
		t.Fatalf("ollama model = %q, want %q", got, DefaultOllamaModel)
	}
	gen, err = NewGenerator(GeneratorConfig{Provider: ProviderGemini, APIKey: "k"})
	if err != nil {
		t.Fatalf("new gemini generator: %v", err)
	}
	if got := gen.(*GeminiGenerator).model; got != DefaultGeminiModel {
		t.Fatalf("gemini model = %q, want %q", got, DefaultGeminiModel)
	}
	gen, err = NewGenerator(GeneratorConfig{})
	if err != nil {
		t.Fatalf("new default generator: %v", err)
	}
	if got := gen.(*OpenAICompatGenerator).model; got != DefaultModel {
		t.Fatalf("openai model = %q, want %q", got, DefaultModel)
	}
	gen, err = NewGenerator(GeneratorConfig{Provider: ProviderOllama, Model: "mistral"})
	if err != nil {
		t.Fatalf("new ollama generator: %v", err)
	}
	if got := gen.(*OllamaGenerator).model; got != "mistral" {
		t.Fatalf("explicit model should win, got %q", got)
	}
}
