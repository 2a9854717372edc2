// Package llm provides LLM provider abstraction layer
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
	ProviderCustom    ProviderType = "custom"
)

// Capability represents optional provider capabilities
type Capability string

const (
	CapabilityEmbeddings Capability = "embeddings"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a streaming response chunk
type StreamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type StreamDelta struct {
	Content string `json:"content"`
	Role    string `json:"role,omitempty"`
}

// EmbedRequest represents an embedding request
type EmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// EmbedResponse represents an embedding response
type EmbedResponse struct {
	Data  []Embedding `json:"data"`
	Usage Usage       `json:"usage"`
}

type Embedding struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Type() ProviderType
	GetConfig() Config
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ChatStream(ctx context.Context, req *ChatRequest, fn func(*StreamChunk)) error

	// Optional capabilities - return ErrCapabilityNotSupported if not implemented
	Capabilities() []Capability
	Embeddings(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error)
}

// ErrCapabilityNotSupported is returned when a capability is not supported
var ErrCapabilityNotSupported = fmt.Errorf("capability not supported")

// Config holds provider configuration
type Config struct {
	Type    ProviderType      `json:"type"`
	APIKey  string            `json:"apiKey,omitempty"`
	BaseURL string            `json:"baseUrl,omitempty"`
	Model   string            `json:"model,omitempty"`
	Timeout int               `json:"timeout,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ModelsConfig holds models configuration
type ModelsConfig struct {
	Primary   string                 `json:"primary"`
	Fallbacks []string               `json:"fallbacks,omitempty"`
	Models    map[string]ModelConfig `json:"models,omitempty"`
}

// ModelConfig holds individual model configuration
type ModelConfig struct {
	Alias         string `json:"alias,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
	BaseURL       string `json:"baseUrl,omitempty"`
	ContextWindow int    `json:"contextWindow,omitempty"`
}

// GetContextWindow attempts to get context window from API, falls back to config
func GetContextWindow(providerType ProviderType, model, baseURL, apiKey string, modelsCfg ModelsConfig) int {
	// 1. Try to get from API
	if ctxWindow := fetchContextWindowFromAPI(providerType, model, baseURL, apiKey); ctxWindow > 0 {
		return ctxWindow
	}

	// 2. Fallback to config
	if modelsCfg.Models != nil {
		if cfg, ok := modelsCfg.Models[model]; ok && cfg.ContextWindow > 0 {
			return cfg.ContextWindow
		}
		// Try matching prefix (e.g., "gpt-4" matches "gpt-4o")
		for name, cfg := range modelsCfg.Models {
			if strings.HasPrefix(model, name) && cfg.ContextWindow > 0 {
				return cfg.ContextWindow
			}
		}
	}

	// 3. Fallback to default
	return 8192
}

// fetchContextWindowFromAPI tries to get context window from provider API
func fetchContextWindowFromAPI(providerType ProviderType, model, baseURL, apiKey string) int {
	switch providerType {
	case ProviderAnthropic:
		return getAnthropicContextWindow(model)
	case ProviderGoogle:
		return getGoogleContextWindow(model)
	}

	if apiKey == "" && providerType != ProviderOllama {
		return 0
	}
	if baseURL == "" {
		return 0
	}

	var url string
	switch providerType {
	case ProviderOpenAI, ProviderCustom:
		if w := getOpenAIContextWindow(model); w > 0 {
			return w
		}
		url = baseURL + "/models/" + model
	case ProviderOllama:
		url = baseURL + "/api/tags"
	}

	if url == "" {
		return 0
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return 0
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return 0
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0
	}

	return parseContextWindowFromResponse(providerType, result, model)
}

func parseContextWindowFromResponse(providerType ProviderType, result map[string]interface{}, model string) int {
	switch providerType {
	case ProviderOpenAI, ProviderCustom:
		if ctx, ok := result["context_window"].(float64); ok {
			return int(ctx)
		}
		if ctx, ok := result["max_tokens"].(float64); ok {
			return int(ctx)
		}
	case ProviderOllama:
		if models, ok := result["models"].([]interface{}); ok {
			for _, m := range models {
				if mm, ok := m.(map[string]interface{}); ok {
					name, _ := mm["name"].(string)
					if strings.Contains(name, strings.Split(model, ":")[0]) {
						if details, ok := mm["details"].(map[string]interface{}); ok {
							if ctx, ok := details["context_length"].(float64); ok {
								return int(ctx)
							}
						}
					}
				}
			}
		}
	}
	return 0
}

// Known context windows for OpenAI models
func getOpenAIContextWindow(model string) int {
	windows := map[string]int{
		"gpt-4o-mini":   128000,
		"gpt-4o":        128000,
		"gpt-4-turbo":   128000,
		"gpt-4-32k":     32768,
		"gpt-4":         8192,
		"gpt-3.5-turbo": 16385,
		"o1":            200000,
		"o3":            200000,
	}
	for k, v := range windows {
		if strings.HasPrefix(model, k) {
			return v
		}
	}
	return 0
}

// Known context windows for Anthropic models
func getAnthropicContextWindow(model string) int {
	windows := map[string]int{
		"claude-3-5-sonnet": 200000,
		"claude-3-opus":     200000,
		"claude-3-sonnet":   200000,
		"claude-3-haiku":    200000,
		"claude-2.1":        200000,
		"claude-2":          100000,
		"claude-instant":    100000,
	}
	for k, v := range windows {
		if strings.Contains(model, k) {
			return v
		}
	}
	return 0
}

// Known context windows for Google models
func getGoogleContextWindow(model string) int {
	windows := map[string]int{
		"gemini-2.0-flash":    1000000,
		"gemini-1.5-pro":      200000,
		"gemini-1.5-flash-8b": 1000000,
		"gemini-1.5-flash":    1000000,
		"gemini-pro":          32000,
	}
	for k, v := range windows {
		if strings.Contains(model, k) {
			return v
		}
	}
	return 0
}

// BaseProvider provides common HTTP functionality for all providers
type BaseProvider struct {
	config Config
	client *http.Client
}

func NewBaseProvider(cfg Config) *BaseProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60
	}
	return &BaseProvider{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (p *BaseProvider) GetConfig() Config       { return p.config }
func (p *BaseProvider) GetClient() *http.Client { return p.client }

// BuildRequest builds a JSON POST request against the provider base URL
func (p *BaseProvider) BuildRequest(endpoint string, body interface{}) (*http.Request, error) {
	url := p.config.BaseURL + endpoint
	var bodyStr string
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyStr = string(b)
	}
	req, err := http.NewRequest("POST", url, strings.NewReader(bodyStr))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// isRetryable checks if an error is retryable
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "reset") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503")
}

// DoRequest executes a request with retry and backoff on transient failures
func (p *BaseProvider) DoRequest(ctx context.Context, req *http.Request) ([]byte, error) {
	maxRetries := 3
	baseBackoff := time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		// The body is drained by each attempt; rewind it before retrying
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
		resp, err := p.client.Do(req.WithContext(ctx))
		if err != nil {
			if attempt < maxRetries-1 && isRetryable(err) {
				backoff := baseBackoff * time.Duration(1<<attempt)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
					continue
				}
			}
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			if (resp.StatusCode >= 500 || resp.StatusCode == 429) && attempt < maxRetries-1 {
				backoff := baseBackoff * time.Duration(1<<attempt)
				if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
					if seconds, err := strconv.Atoi(retryAfter); err == nil {
						backoff = time.Duration(seconds) * time.Second
					}
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
					continue
				}
			}
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
		}
		return body, nil
	}
	return nil, fmt.Errorf("max retries exceeded")
}

// DefaultCapabilities returns basic capabilities that all providers support
func DefaultCapabilities() []Capability {
	return []Capability{CapabilityEmbeddings}
}

// DefaultEmbeddings returns error (must be overridden)
func DefaultEmbeddings(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	return nil, ErrCapabilityNotSupported
}

// ProviderRegistry manages provider instances
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[ProviderType]Provider
}

var globalRegistry = &ProviderRegistry{
	providers: make(map[ProviderType]Provider),
}

// RegisterProvider registers a provider
func RegisterProvider(p Provider) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.providers[p.Type()] = p
}

// GetProvider returns a provider by type
func GetProvider(t ProviderType) (Provider, error) {
	globalRegistry.mu.RLock()
	p, ok := globalRegistry.providers[t]
	globalRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", t)
	}
	return p, nil
}

// ListProviders returns all registered providers
func ListProviders() []ProviderType {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	types := make([]ProviderType, 0, len(globalRegistry.providers))
	for t := range globalRegistry.providers {
		types = append(types, t)
	}
	return types
}

// LoadConfigFromEnv loads provider config from environment variables
func LoadConfigFromEnv(providerType ProviderType) Config {
	cfg := Config{Type: providerType}
	switch providerType {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
		cfg.Model = getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
	case ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		cfg.BaseURL = getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1")
		cfg.Model = getEnvOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	case ProviderGoogle:
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		cfg.BaseURL = getEnvOrDefault("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com/v1")
		cfg.Model = getEnvOrDefault("GOOGLE_MODEL", "gemini-2.0-flash")
	case ProviderOllama:
		cfg.BaseURL = getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434")
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", "llama3")
	case ProviderCustom:
		cfg.APIKey = os.Getenv("CUSTOM_API_KEY")
		cfg.BaseURL = os.Getenv("CUSTOM_BASE_URL")
		cfg.Model = os.Getenv("CUSTOM_MODEL")
	}
	return cfg
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
