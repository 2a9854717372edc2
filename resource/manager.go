// Resource manager - workspace file store for tool output
package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gliderlab/specforge/storage"
)

// Manager writes tool output into a workspace directory and records every
// write in storage. Write results are strings: a confirmation on success,
// or a string prefixed "Error" on failure. Callers check the prefix.
type Manager struct {
	workspace string
	store     *storage.Storage // optional, nil disables bookkeeping
}

// New creates a resource manager rooted at workspace
func New(workspace string, store *storage.Storage) (*Manager, error) {
	if workspace == "" {
		return nil, fmt.Errorf("workspace required")
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	return &Manager{workspace: abs, store: store}, nil
}

// Workspace returns the workspace root
func (m *Manager) Workspace() string { return m.workspace }

// ResolvePath validates a resource name and returns its absolute path.
// Names are plain file names; separators and traversal are rejected.
func (m *Manager) ResolvePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name required")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("file name must not contain a path: %s", name)
	}
	path := filepath.Clean(filepath.Join(m.workspace, name))

	// Jail check: the resolved path must stay inside the workspace
	rel, err := filepath.Rel(m.workspace, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path not allowed: %s is outside the workspace", name)
	}
	return path, nil
}

// WriteFile writes content to a named workspace file. Returns a confirmation
// string, or a string prefixed "Error" when the write failed.
func (m *Manager) WriteFile(name, content string) string {
	return m.WriteFileFrom("write_file", name, content)
}

// WriteFileFrom is WriteFile with the producing tool recorded alongside the
// resource
func (m *Manager) WriteFileFrom(tool, name, content string) string {
	path, err := m.ResolvePath(name)
	if err != nil {
		return fmt.Sprintf("Error write_file: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Printf("[ERROR] write resource %s: %v", name, err)
		return fmt.Sprintf("Error write_file: %v", err)
	}

	if m.store != nil {
		sum := sha256.Sum256([]byte(content))
		if err := m.store.AddResource(name, path, int64(len(content)), hex.EncodeToString(sum[:]), tool); err != nil {
			// Bookkeeping failure does not undo the write
			log.Printf("[WARN] record resource %s: %v", name, err)
		}
	}

	log.Printf("[OK] resource written: %s (%d bytes)", name, len(content))
	return fmt.Sprintf("File written to %s successfully", name)
}

// ReadFile reads a named workspace file
func (m *Manager) ReadFile(name string) (string, error) {
	path, err := m.ResolvePath(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ListResources returns the recorded resources, newest first
func (m *Manager) ListResources() ([]storage.Resource, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.ListResources()
}

// IsWriteError reports whether a write result string is an error result
func IsWriteError(result string) bool {
	return strings.HasPrefix(result, "Error")
}
