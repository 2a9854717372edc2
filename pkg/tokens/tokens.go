// Package tokens provides token counting for chat prompts
package tokens

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/gliderlab/specforge/pkg/llm"
)

// Per-message overhead and reply primer, per the OpenAI counting convention
const (
	messageOverhead = 4
	replyPrimer     = 3
)

// counter is a package-level tiktoken instance for accurate counting
var (
	counter     *tiktoken.Tiktoken
	counterOnce sync.Once
)

// initCounter initializes tiktoken for accurate token counting
func initCounter() {
	counterOnce.Do(func() {
		// cl100k_base is used by GPT-3.5 Turbo, GPT-4, GPT-4 Turbo
		tk, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[WARN] Token estimation will use fallback method: %v", err)
			return
		}
		counter = tk
	})
}

// CountText counts tokens in a single string
func CountText(s string) int {
	initCounter()

	if counter != nil {
		return len(counter.Encode(s, nil, nil))
	}
	return estimate(s)
}

// CountMessages counts tokens for a chat prompt, including the per-message
// framing overhead and the assistant reply primer
func CountMessages(messages []llm.Message) int {
	total := replyPrimer
	for _, m := range messages {
		total += messageOverhead
		total += CountText(m.Content)
		if m.Name != "" {
			total += CountText(m.Name)
		}
	}
	return total
}

// Budget returns the completion budget left in a context window after the
// prompt and a reserve. Non-positive means the prompt does not fit.
func Budget(contextWindow, promptTokens, reserve int) int {
	return contextWindow - promptTokens - reserve
}

// estimate is a rough fallback when the tokenizer is unavailable
func estimate(s string) int {
	ascii := 0
	nonASCII := 0
	for _, r := range s {
		if r <= 127 {
			ascii++
		} else {
			nonASCII++
		}
	}
	// Rough estimate: ASCII ~4 chars/token, non-ASCII (e.g., CJK) ~2 tokens/char
	return ascii/4 + nonASCII*2
}
