// Package factory provides the provider factory and initialization
package factory

import (
	"fmt"
	"os"

	"github.com/gliderlab/specforge/pkg/llm"
	"github.com/gliderlab/specforge/pkg/llm/providers/anthropic"
	"github.com/gliderlab/specforge/pkg/llm/providers/custom"
	"github.com/gliderlab/specforge/pkg/llm/providers/google"
	"github.com/gliderlab/specforge/pkg/llm/providers/ollama"
	"github.com/gliderlab/specforge/pkg/llm/providers/openai"
)

// InitProviders initializes all available LLM providers
func InitProviders() error {
	if os.Getenv("OPENAI_API_KEY") != "" {
		p := openai.NewFromEnv()
		llm.RegisterProvider(p)
		fmt.Printf("[OK] Registered provider: OpenAI (model: %s)\n", p.GetConfig().Model)
	}

	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		p := anthropic.NewFromEnv()
		llm.RegisterProvider(p)
		fmt.Printf("[OK] Registered provider: Anthropic (model: %s)\n", p.GetConfig().Model)
	}

	if os.Getenv("GOOGLE_API_KEY") != "" {
		p := google.NewFromEnv()
		llm.RegisterProvider(p)
		fmt.Printf("[OK] Registered provider: Google (model: %s)\n", p.GetConfig().Model)
	}

	// Ollama (always available if running)
	ollamaProvider := ollama.NewFromEnv()
	llm.RegisterProvider(ollamaProvider)
	fmt.Printf("[OK] Registered provider: Ollama (model: %s)\n", ollamaProvider.GetConfig().Model)

	// Custom (for any OpenAI-compatible API)
	if customProvider := custom.NewFromEnv(); customProvider != nil {
		llm.RegisterProvider(customProvider)
		fmt.Printf("[OK] Registered provider: Custom (model: %s)\n", customProvider.GetConfig().Model)
	}

	if len(llm.ListProviders()) == 0 {
		return fmt.Errorf("no LLM providers configured")
	}
	return nil
}

// DefaultProvider resolves the provider named by SPECFORGE_PROVIDER, falling
// back to the first registered one
func DefaultProvider() (llm.Provider, error) {
	if name := os.Getenv("SPECFORGE_PROVIDER"); name != "" {
		return llm.GetProvider(llm.ProviderType(name))
	}
	for _, t := range []llm.ProviderType{llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderGoogle, llm.ProviderCustom, llm.ProviderOllama} {
		if p, err := llm.GetProvider(t); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no LLM providers registered")
}
