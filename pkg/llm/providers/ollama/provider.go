// Package ollama provides Ollama local provider implementation
package ollama

import (
	"context"
	"encoding/json"

	"github.com/gliderlab/specforge/pkg/llm"
)

// Provider implements llm.Provider for Ollama
type Provider struct {
	*llm.BaseProvider
}

// New creates a new Ollama provider
func New(cfg llm.Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 // Ollama can be slow
	}
	return &Provider{llm.NewBaseProvider(cfg)}
}

// NewFromEnv creates a new Ollama provider from environment variables
func NewFromEnv() *Provider {
	return New(llm.LoadConfigFromEnv(llm.ProviderOllama))
}

// Name returns the provider name
func (p *Provider) Name() string { return "ollama" }

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType { return llm.ProviderOllama }

func buildOllamaRequest(req *llm.ChatRequest, stream bool) map[string]interface{} {
	return map[string]interface{}{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   stream,
		"options": map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}
}

// Chat implements llm.Provider.Chat
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	httpReq, err := p.BuildRequest("/api/chat", buildOllamaRequest(req, false))
	if err != nil {
		return nil, err
	}

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Message         llm.Message `json:"message"`
		Done            bool        `json:"done"`
		PromptEvalCount int         `json:"prompt_eval_count"`
		EvalCount       int         `json:"eval_count"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.Choice{{Index: 0, Message: resp.Message, FinishReason: "stop"}},
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// ChatStream implements llm.Provider.ChatStream
func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest, fn func(*llm.StreamChunk)) error {
	httpReq, err := p.BuildRequest("/api/chat", buildOllamaRequest(req, true))
	if err != nil {
		return err
	}

	resp, err := p.GetClient().Do(httpReq.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Done bool `json:"done"`
		}
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		finish := ""
		if chunk.Done {
			finish = "stop"
		}
		fn(&llm.StreamChunk{
			Model: req.Model,
			Choices: []llm.StreamChoice{
				{Delta: llm.StreamDelta{Content: chunk.Message.Content}, FinishReason: finish},
			},
		})
		if chunk.Done {
			break
		}
	}
	return nil
}

// Embeddings implements llm.Provider.Embeddings via /api/embeddings
func (p *Provider) Embeddings(ctx context.Context, req *llm.EmbedRequest) (*llm.EmbedResponse, error) {
	ollamaReq := map[string]interface{}{
		"model":  req.Model,
		"prompt": req.Input,
	}
	httpReq, err := p.BuildRequest("/api/embeddings", ollamaReq)
	if err != nil {
		return nil, err
	}

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return &llm.EmbedResponse{
		Data: []llm.Embedding{{Object: "embedding", Embedding: resp.Embedding, Index: 0}},
	}, nil
}

// Capabilities returns supported capabilities
func (p *Provider) Capabilities() []llm.Capability {
	return llm.DefaultCapabilities()
}
