// Package google provides Google Gemini provider implementation
package google

import (
	"context"
	"encoding/json"

	"github.com/gliderlab/specforge/pkg/llm"
)

// Provider implements llm.Provider for Google Gemini
type Provider struct {
	*llm.BaseProvider
}

// New creates a new Google provider
func New(cfg llm.Config) *Provider {
	return &Provider{llm.NewBaseProvider(cfg)}
}

// NewFromEnv creates a new Google provider from environment variables
func NewFromEnv() *Provider {
	return New(llm.LoadConfigFromEnv(llm.ProviderGoogle))
}

// Name returns the provider name
func (p *Provider) Name() string { return "google" }

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType { return llm.ProviderGoogle }

func convertToGeminiContents(msgs []llm.Message) []map[string]interface{} {
	contents := make([]map[string]interface{}, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents[i] = map[string]interface{}{
			"role":  role,
			"parts": []map[string]string{{"text": m.Content}},
		}
	}
	return contents
}

// Chat implements llm.Provider.Chat
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	googleReq := map[string]interface{}{
		"contents": convertToGeminiContents(req.Messages),
		"generationConfig": map[string]interface{}{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
			"topP":            req.TopP,
		},
	}

	httpReq, err := p.BuildRequest("/models/"+req.Model+":generateContent", googleReq)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-goog-api-key", p.GetConfig().APIKey)

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		content = resp.Candidates[0].Content.Parts[0].Text
	}

	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.Choice{{Index: 0, Message: llm.Message{Role: "assistant", Content: content}, FinishReason: "stop"}},
		Usage: llm.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// ChatStream implements llm.Provider.ChatStream
func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest, fn func(*llm.StreamChunk)) error {
	googleReq := map[string]interface{}{
		"contents": convertToGeminiContents(req.Messages),
		"generationConfig": map[string]interface{}{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
			"topP":            req.TopP,
		},
	}

	httpReq, err := p.BuildRequest("/models/"+req.Model+":streamGenerateContent", googleReq)
	if err != nil {
		return err
	}
	httpReq.Header.Set("x-goog-api-key", p.GetConfig().APIKey)

	resp, err := p.GetClient().Do(httpReq.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
				FinishReason string `json:"finishReason"`
			} `json:"candidates"`
		}
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]
		text := ""
		if len(cand.Content.Parts) > 0 {
			text = cand.Content.Parts[0].Text
		}
		fn(&llm.StreamChunk{
			Model: req.Model,
			Choices: []llm.StreamChoice{
				{Delta: llm.StreamDelta{Content: text}, FinishReason: cand.FinishReason},
			},
		})
		if cand.FinishReason != "" {
			break
		}
	}
	return nil
}

// Embeddings is not wired for Gemini
func (p *Provider) Embeddings(ctx context.Context, req *llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return llm.DefaultEmbeddings(ctx, req)
}

// Capabilities returns supported capabilities
func (p *Provider) Capabilities() []llm.Capability {
	return nil
}
