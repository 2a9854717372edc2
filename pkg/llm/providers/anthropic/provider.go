// Package anthropic provides Anthropic Claude provider implementation
package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"

	"github.com/gliderlab/specforge/pkg/llm"
)

// Provider implements llm.Provider for Anthropic
type Provider struct {
	*llm.BaseProvider
}

// New creates a new Anthropic provider
func New(cfg llm.Config) *Provider {
	return &Provider{llm.NewBaseProvider(cfg)}
}

// NewFromEnv creates a new Anthropic provider from environment variables
func NewFromEnv() *Provider {
	return New(llm.LoadConfigFromEnv(llm.ProviderAnthropic))
}

// Name returns the provider name
func (p *Provider) Name() string { return "anthropic" }

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType { return llm.ProviderAnthropic }

// Chat implements llm.Provider.Chat
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	system, messages := convertToAnthropicMessages(req.Messages)
	anthropicReq := map[string]interface{}{
		"model":       req.Model,
		"max_tokens":  maxTokens,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if system != "" {
		anthropicReq["system"] = system
	}

	httpReq, err := p.BuildRequest("/messages", anthropicReq)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", p.GetConfig().APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}

	return &llm.ChatResponse{
		ID:    resp.ID,
		Model: req.Model,
		Choices: []llm.Choice{
			{
				Index: 0,
				Message: llm.Message{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// ChatStream implements llm.Provider.ChatStream
func (p *Provider) ChatStream(ctx context.Context, req *llm.ChatRequest, fn func(*llm.StreamChunk)) error {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	system, messages := convertToAnthropicMessages(req.Messages)
	anthropicReq := map[string]interface{}{
		"model":       req.Model,
		"max_tokens":  maxTokens,
		"messages":    messages,
		"temperature": req.Temperature,
		"stream":      true,
	}
	if system != "" {
		anthropicReq["system"] = system
	}

	httpReq, err := p.BuildRequest("/messages", anthropicReq)
	if err != nil {
		return err
	}
	httpReq.Header.Set("x-api-key", p.GetConfig().APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.GetClient().Do(httpReq.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Anthropic streams SSE: "event: ..." / "data: {...}" lines
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			fn(&llm.StreamChunk{
				Model: req.Model,
				Choices: []llm.StreamChoice{
					{Delta: llm.StreamDelta{Content: event.Delta.Text}},
				},
			})
		case "message_stop":
			fn(&llm.StreamChunk{
				Model: req.Model,
				Choices: []llm.StreamChoice{
					{FinishReason: "stop"},
				},
			})
			return nil
		}
	}
	return scanner.Err()
}

// Embeddings is not supported by Anthropic
func (p *Provider) Embeddings(ctx context.Context, req *llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return llm.DefaultEmbeddings(ctx, req)
}

// Capabilities returns supported capabilities
func (p *Provider) Capabilities() []llm.Capability {
	return nil
}

// convertToAnthropicMessages splits out system messages; Anthropic takes the
// system prompt as a top-level field, not a message role
func convertToAnthropicMessages(msgs []llm.Message) (string, []map[string]string) {
	var system []string
	result := make([]map[string]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		result = append(result, map[string]string{
			"role":    m.Role,
			"content": m.Content,
		})
	}
	// The messages API requires at least one user message
	if len(result) == 0 && len(system) > 0 {
		result = append(result, map[string]string{
			"role":    "user",
			"content": system[len(system)-1],
		})
		system = system[:len(system)-1]
	}
	return strings.Join(system, "\n\n"), result
}
