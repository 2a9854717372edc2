// Package openai provides OpenAI provider implementation
package openai

import (
	"context"
	"encoding/json"

	"github.com/gliderlab/specforge/pkg/llm"
)

// Provider implements llm.Provider for OpenAI
type Provider struct {
	*llm.BaseProvider
}

// New creates a new OpenAI provider
func New(cfg llm.Config) *Provider {
	return &Provider{llm.NewBaseProvider(cfg)}
}

// NewFromEnv creates a new OpenAI provider from environment variables
func NewFromEnv() *Provider {
	return New(llm.LoadConfigFromEnv(llm.ProviderOpenAI))
}

// Name returns the provider name
func (p *Provider) Name() string { return "openai" }

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType { return llm.ProviderOpenAI }

// Chat implements llm.Provider.Chat
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	httpReq, err := p.BuildRequest("/chat/completions", req)
	if err != nil {
		return nil, err
	}

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChatStream implements llm.Provider.ChatStream
func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest, fn func(*llm.StreamChunk)) error {
	req.Stream = true
	httpReq, err := p.BuildRequest("/chat/completions", req)
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
		var chunk llm.StreamChunk
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		fn(&chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].FinishReason != "" {
			break
		}
	}
	return nil
}

// Embeddings implements llm.Provider.Embeddings
func (p *Provider) Embeddings(ctx context.Context, req *llm.EmbedRequest) (*llm.EmbedResponse, error) {
	httpReq, err := p.BuildRequest("/embeddings", req)
	if err != nil {
		return nil, err
	}

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp llm.EmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Capabilities returns supported capabilities
func (p *Provider) Capabilities() []llm.Capability {
	return llm.DefaultCapabilities()
}
