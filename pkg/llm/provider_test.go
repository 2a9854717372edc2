package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestProviderTypes(t *testing.T) {
	types := []ProviderType{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGoogle,
		ProviderOllama,
		ProviderCustom,
	}

	if len(types) == 0 {
		t.Error("Provider types should not be empty")
	}
}

func TestMessage(t *testing.T) {
	msg := Message{
		Role:    "user",
		Content: "Hello",
	}

	if msg.Role != "user" {
		t.Errorf("Expected role 'user', got '%s'", msg.Role)
	}

	if msg.Content != "Hello" {
		t.Errorf("Expected content 'Hello', got '%s'", msg.Content)
	}
}

func TestChatRequest(t *testing.T) {
	req := ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: "system", Content: "Write a spec"},
		},
		Temperature: 0.7,
		MaxTokens:   1024,
	}

	if req.Model != "gpt-4o" {
		t.Errorf("Expected model 'gpt-4o', got '%s'", req.Model)
	}

	if len(req.Messages) != 1 {
		t.Errorf("Expected 1 message, got %d", len(req.Messages))
	}
}

func TestGetContextWindowStaticTables(t *testing.T) {
	tests := []struct {
		providerType ProviderType
		model        string
		want         int
	}{
		{ProviderAnthropic, "claude-3-5-sonnet-20241022", 200000},
		{ProviderAnthropic, "claude-2", 100000},
		{ProviderGoogle, "gemini-2.0-flash", 1000000},
		{ProviderGoogle, "gemini-1.5-pro", 200000},
	}

	for _, tt := range tests {
		got := GetContextWindow(tt.providerType, tt.model, "", "", ModelsConfig{})
		if got != tt.want {
			t.Errorf("GetContextWindow(%s, %s) = %d, want %d", tt.providerType, tt.model, got, tt.want)
		}
	}
}

func TestGetContextWindowConfigFallback(t *testing.T) {
	cfg := ModelsConfig{
		Models: map[string]ModelConfig{
			"my-model": {ContextWindow: 32768},
		},
	}

	got := GetContextWindow(ProviderCustom, "my-model", "", "", cfg)
	if got != 32768 {
		t.Errorf("Expected 32768 from config, got %d", got)
	}
}

func TestGetContextWindowPrefixMatch(t *testing.T) {
	cfg := ModelsConfig{
		Models: map[string]ModelConfig{
			"my-model": {ContextWindow: 65536},
		},
	}

	got := GetContextWindow(ProviderCustom, "my-model-v2", "", "", cfg)
	if got != 65536 {
		t.Errorf("Expected 65536 from prefix match, got %d", got)
	}
}

func TestGetContextWindowDefault(t *testing.T) {
	got := GetContextWindow(ProviderCustom, "unknown-model", "", "", ModelsConfig{})
	if got != 8192 {
		t.Errorf("Expected default 8192, got %d", got)
	}
}

func TestOpenAIContextWindow(t *testing.T) {
	if w := getOpenAIContextWindow("gpt-4o-mini"); w != 128000 {
		t.Errorf("Expected 128000 for gpt-4o-mini, got %d", w)
	}
	if w := getOpenAIContextWindow("gpt-4"); w != 8192 {
		t.Errorf("Expected 8192 for gpt-4, got %d", w)
	}
	if w := getOpenAIContextWindow("nope"); w != 0 {
		t.Errorf("Expected 0 for unknown model, got %d", w)
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if !isRetryable(fmt.Errorf("connection reset by peer")) {
		t.Error("connection reset should be retryable")
	}
	if isRetryable(fmt.Errorf("invalid api key")) {
		t.Error("auth failure should not be retryable")
	}
}

type stubProvider struct {
	*BaseProvider
}

func (s *stubProvider) Name() string       { return "stub" }
func (s *stubProvider) Type() ProviderType { return ProviderCustom }
func (s *stubProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{}, nil
}
func (s *stubProvider) ChatStream(ctx context.Context, req *ChatRequest, fn func(*StreamChunk)) error {
	return nil
}
func (s *stubProvider) Capabilities() []Capability { return nil }
func (s *stubProvider) Embeddings(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	return nil, ErrCapabilityNotSupported
}

func TestProviderRegistry(t *testing.T) {
	p := &stubProvider{NewBaseProvider(Config{Type: ProviderCustom, Model: "stub-1"})}
	RegisterProvider(p)

	got, err := GetProvider(ProviderCustom)
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if got.GetConfig().Model != "stub-1" {
		t.Errorf("Expected model 'stub-1', got '%s'", got.GetConfig().Model)
	}

	if _, err := GetProvider(ProviderType("missing")); err == nil {
		t.Error("Expected error for unregistered provider")
	}

	if len(ListProviders()) == 0 {
		t.Error("ListProviders should include registered provider")
	}
}

func TestDoRequestRetryResendsBody(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	p := NewBaseProvider(Config{Type: ProviderCustom, BaseURL: srv.URL, APIKey: "key"})
	req, err := p.BuildRequest("/chat/completions", map[string]string{"model": "m"})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if _, err := p.DoRequest(context.Background(), req); err != nil {
		t.Fatalf("DoRequest failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("Expected 2 attempts, got %d", len(bodies))
	}
	if bodies[1] == "" {
		t.Error("Retry should resend the request body")
	}
	if bodies[0] != bodies[1] {
		t.Errorf("Retry body mismatch: %q vs %q", bodies[0], bodies[1])
	}
}

func TestDefaultCapabilities(t *testing.T) {
	caps := DefaultCapabilities()
	if len(caps) != 1 || caps[0] != CapabilityEmbeddings {
		t.Errorf("Expected [embeddings], got %v", caps)
	}
}

func TestDefaultEmbeddings(t *testing.T) {
	_, err := DefaultEmbeddings(context.Background(), &EmbedRequest{Input: "x"})
	if err != ErrCapabilityNotSupported {
		t.Errorf("Expected ErrCapabilityNotSupported, got %v", err)
	}
}
