// Tools module - tool invocation framework
package tools

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Tool defines the tool interface
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(args map[string]interface{}) (interface{}, error)
}

// ToolsPolicy holds tool allow/deny policy
type ToolsPolicy struct {
	Profile string   // "minimal", "full"
	Allow   []string // Tool names or groups to allow
	Deny    []string // Tool names or groups to deny
}

// Registry holds registered tools
type Registry struct {
	tools  map[string]Tool
	policy *ToolsPolicy
}

// Tool groups
var ToolGroups = map[string][]string{
	"group:fs":   {"read", "write"},
	"group:spec": {"write_spec"},
}

func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		policy: DefaultToolsPolicy(),
	}
}

// NewRegistryWithPolicy creates a registry with custom policy
func NewRegistryWithPolicy(policy *ToolsPolicy) *Registry {
	if policy == nil {
		policy = DefaultToolsPolicy()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		policy: policy,
	}
}

// DefaultToolsPolicy returns default policy (full access)
func DefaultToolsPolicy() *ToolsPolicy {
	return &ToolsPolicy{
		Profile: "full",
		Allow:   nil, // nil means all
		Deny:    nil,
	}
}

// SetPolicy updates the tools policy
func (r *Registry) SetPolicy(policy *ToolsPolicy) {
	r.policy = policy
}

// IsToolAllowed checks if a tool is allowed by policy
func (r *Registry) IsToolAllowed(toolName string) bool {
	// Expand tool name if it's a group
	toolNames := []string{toolName}
	if strings.HasPrefix(toolName, "group:") {
		if group, ok := ToolGroups[toolName]; ok {
			toolNames = group
		}
	}

	for _, name := range toolNames {
		// Check deny first
		if r.policy != nil && len(r.policy.Deny) > 0 {
			for _, denied := range r.policy.Deny {
				if denied == "*" || denied == name || denied == toolName {
					// Check if it's in allow list
					allowedByDeny := false
					if len(r.policy.Allow) > 0 {
						for _, allowItem := range r.policy.Allow {
							if allowItem == "*" || allowItem == name || allowItem == toolName {
								allowedByDeny = true
								break
							}
						}
					}
					if !allowedByDeny {
						return false
					}
				}
			}
		}

		// Check allow list
		if r.policy != nil && len(r.policy.Allow) > 0 {
			allowedByAllow := false
			for _, allowItem := range r.policy.Allow {
				if allowItem == "*" || allowItem == name || allowItem == toolName {
					allowedByAllow = true
					break
				}
			}
			if !allowedByAllow {
				return false
			}
		}
	}

	return true
}

// GetAllowedTools returns list of tools filtered by policy
func (r *Registry) GetAllowedTools() []string {
	var allowed []string
	for name := range r.tools {
		if r.IsToolAllowed(name) {
			allowed = append(allowed, name)
		}
	}
	return allowed
}

// Register a tool
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
	log.Printf("[OK] tool registered: %s", t.Name())
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List all tools
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// CallTool and return its result
func (r *Registry) CallTool(name string, args map[string]interface{}) (interface{}, error) {
	// Check policy first
	if !r.IsToolAllowed(name) {
		return nil, fmt.Errorf("tool not allowed by policy: %s", name)
	}

	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}

	log.Printf("[TOOL] calling tool: %s", name)
	result, err := t.Execute(args)
	if err != nil {
		log.Printf("[ERROR] tool failed: %s - %v", name, err)
		return nil, err
	}

	log.Printf("[OK] tool succeeded: %s", name)
	return result, nil
}

// GetToolSpecs returns OpenAI-format specs with function wrapper (filtered by policy)
func (r *Registry) GetToolSpecs() []map[string]interface{} {
	specs := make([]map[string]interface{}, 0)
	for _, t := range r.tools {
		// Only include tools allowed by policy
		if !r.IsToolAllowed(t.Name()) {
			continue
		}
		specs = append(specs, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Parameters(),
			},
		})
	}
	return specs
}

// ParseArgs parses JSON args
func ParseArgs(argsJSON string) (map[string]interface{}, error) {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, fmt.Errorf("failed to parse args: %v", err)
	}
	return args, nil
}

// GetString gets a string arg
func GetString(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetInt gets an int arg
func GetInt(args map[string]interface{}, key string) int {
	if v, ok := args[key]; ok {
		switch f := v.(type) {
		case float64:
			return int(f)
		case int:
			return f
		case string:
			var i int
			fmt.Sscanf(f, "%d", &i)
			return i
		}
	}
	return 0
}

// GetBool gets a bool arg
func GetBool(args map[string]interface{}, key string) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Truncate long text
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...\n(content truncated)"
}
