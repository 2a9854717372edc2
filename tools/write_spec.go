// WriteSpecTool - draft a program specification with an LLM and save it
package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/gliderlab/specforge/index"
	"github.com/gliderlab/specforge/pkg/config"
	"github.com/gliderlab/specforge/pkg/kv"
	"github.com/gliderlab/specforge/pkg/llm"
	"github.com/gliderlab/specforge/pkg/tokens"
	"github.com/gliderlab/specforge/prompts"
	"github.com/gliderlab/specforge/resource"
)

// SpecSavedSuffix is appended to the spec content on a successful save
const SpecSavedSuffix = "Specification generated and saved successfully"

// WriteSpecTool asks the LLM for a program specification and writes it to a
// named workspace file. All failures come back as the result string, never
// as a Go error; callers get either the spec content plus SpecSavedSuffix,
// the writer's "Error..." string, or "Error generating specification: ...".
type WriteSpecTool struct {
	Provider  llm.Provider
	Goals     []string
	Resources *resource.Manager
	ModelsCfg llm.ModelsConfig

	Cache    *kv.KV       // optional result cache
	Index    *index.Index // optional similarity index
	CacheTTL time.Duration
}

func (t *WriteSpecTool) Name() string { return "write_spec" }

func (t *WriteSpecTool) Description() string {
	return "A tool to write the spec of a program."
}

func (t *WriteSpecTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task_description": map[string]interface{}{
				"type":        "string",
				"description": "Specification task description.",
			},
			"spec_file_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the file to write. Only include the file name. Don't include path.",
			},
		},
		"required": []string{"task_description", "spec_file_name"},
	}
}

// Execute generates the specification and saves it
func (t *WriteSpecTool) Execute(args map[string]interface{}) (interface{}, error) {
	task := GetString(args, "task_description")
	fileName := GetString(args, "spec_file_name")

	content, err := t.draft(task, fileName)
	if err != nil {
		log.Printf("[ERROR] write_spec: %v", err)
		return fmt.Sprintf("Error generating specification: %v", err), nil
	}

	writeResult := t.Resources.WriteFileFrom("write_spec", fileName, content)
	if resource.IsWriteError(writeResult) {
		log.Printf("[ERROR] write_spec save failed: %s", writeResult)
		return writeResult, nil
	}

	t.indexSpec(fileName, task, content)

	return content + SpecSavedSuffix, nil
}

// draft produces the spec content, via cache or the LLM
func (t *WriteSpecTool) draft(task, fileName string) (string, error) {
	if task == "" {
		return "", fmt.Errorf("task_description is required")
	}
	if fileName == "" {
		return "", fmt.Errorf("spec_file_name is required")
	}
	if t.Provider == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}
	if t.Resources == nil {
		return "", fmt.Errorf("no resource manager configured")
	}

	prompt := prompts.BuildSpecPrompt(t.Goals, task)
	cfg := t.Provider.GetConfig()

	cacheKey := specCacheKey(cfg.Model, prompt)
	if t.Cache != nil {
		if cached, err := t.Cache.Get(cacheKey); err == nil {
			log.Printf("[OK] write_spec cache hit: %s", fileName)
			return cached, nil
		}
	}

	messages := []llm.Message{{Role: "system", Content: prompt}}
	promptTokens := tokens.CountMessages(messages)
	limit := llm.GetContextWindow(cfg.Type, cfg.Model, cfg.BaseURL, cfg.APIKey, t.ModelsCfg)
	budget := tokens.Budget(limit, promptTokens, config.CompletionReserve)
	if budget <= 0 {
		return "", fmt.Errorf("prompt (%d tokens) exceeds the %s context window (%d)", promptTokens, cfg.Model, limit)
	}

	resp, err := t.Provider.Chat(context.Background(), &llm.ChatRequest{
		Model:     cfg.Model,
		Messages:  messages,
		MaxTokens: budget,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("model returned empty specification")
	}
	content := resp.Choices[0].Message.Content

	if t.Cache != nil {
		ttl := t.CacheTTL
		if ttl == 0 {
			ttl = config.DefaultCacheTTLHours * time.Hour
		}
		if err := t.Cache.SetWithTTL(cacheKey, content, ttl); err != nil {
			log.Printf("[WARN] write_spec cache store: %v", err)
		}
	}

	return content, nil
}

// indexSpec records the spec in the similarity index, best effort
func (t *WriteSpecTool) indexSpec(fileName, task, content string) {
	if t.Index == nil {
		return
	}
	if err := t.Index.Add(fileName, task, content); err != nil {
		log.Printf("[WARN] write_spec index: %v", err)
	}
}

func specCacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return "spec:" + hex.EncodeToString(sum[:])
}
