// Prompt building for spec generation
package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecWriterTemplate is the system prompt for drafting a program
// specification. Placeholders: {goals}, {task}.
const SpecWriterTemplate = `You are a super smart developer who has been asked to make a specification for a program.

Your high-level goal is:
{goals}

Please keep in mind the following when creating the specification:
1. Be super explicit about what the program should do, which features it should have, and give details about anything that might be unclear.
2. Lay out the names of the core classes, functions, methods that will be necessary, as well as a quick comment on their purpose.
3. List all non-standard dependencies that will have to be used.

Write a specification for the following task:
{task}
`

// BuildSpecPrompt fills the spec-writer template
func BuildSpecPrompt(goals []string, task string) string {
	prompt := strings.ReplaceAll(SpecWriterTemplate, "{goals}", AddListItems(goals))
	prompt = strings.ReplaceAll(prompt, "{task}", task)
	return prompt
}

// AddListItems renders items as a numbered list, one per line
func AddListItems(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}

// Profile describes the agent on whose behalf specs are generated
type Profile struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Goals       []string `json:"goals" yaml:"goals"`
	Constraints []string `json:"constraints" yaml:"constraints"`
}

// LoadProfile reads a YAML agent profile
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

// LoadProfileOrDefault reads a profile, falling back to an empty one when
// the file does not exist
func LoadProfileOrDefault(path string) *Profile {
	p, err := LoadProfile(path)
	if err != nil {
		return &Profile{}
	}
	return p
}
