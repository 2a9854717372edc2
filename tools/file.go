// File tools - read and write workspace resources
package tools

import (
	"fmt"

	"github.com/gliderlab/specforge/resource"
)

// ReadTool reads a named resource from the workspace
type ReadTool struct {
	Resources *resource.Manager
}

func (t *ReadTool) Name() string        { return "read" }
func (t *ReadTool) Description() string { return "Read a file from the workspace" }

func (t *ReadTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "File name in the workspace. Only include the file name. Don't include path.",
			},
		},
		"required": []string{"name"},
	}
}

func (t *ReadTool) Execute(args map[string]interface{}) (interface{}, error) {
	name := GetString(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if t.Resources == nil {
		return nil, fmt.Errorf("no resource manager configured")
	}
	return t.Resources.ReadFile(name)
}

// WriteTool writes a named resource to the workspace
type WriteTool struct {
	Resources *resource.Manager
}

func (t *WriteTool) Name() string        { return "write" }
func (t *WriteTool) Description() string { return "Write a file to the workspace" }

func (t *WriteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "File name in the workspace. Only include the file name. Don't include path.",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to write",
			},
		},
		"required": []string{"name", "content"},
	}
}

func (t *WriteTool) Execute(args map[string]interface{}) (interface{}, error) {
	name := GetString(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if t.Resources == nil {
		return nil, fmt.Errorf("no resource manager configured")
	}

	result := t.Resources.WriteFile(name, GetString(args, "content"))
	if resource.IsWriteError(result) {
		return nil, fmt.Errorf("%s", result)
	}
	return result, nil
}
