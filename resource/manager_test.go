package resource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gliderlab/specforge/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m, err := New(t.TempDir(), store)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func TestNewRequiresWorkspace(t *testing.T) {
	if _, err := New("", nil); err == nil {
		t.Error("Expected error for empty workspace")
	}
}

func TestWriteFile(t *testing.T) {
	m := newTestManager(t)

	result := m.WriteFile("spec.md", "# Spec\n")
	if IsWriteError(result) {
		t.Fatalf("Unexpected write error: %s", result)
	}
	if !strings.Contains(result, "spec.md") {
		t.Errorf("Confirmation should name the file, got '%s'", result)
	}

	data, err := os.ReadFile(filepath.Join(m.Workspace(), "spec.md"))
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(data) != "# Spec\n" {
		t.Errorf("Unexpected file content: %s", data)
	}
}

func TestWriteFileRecordsResource(t *testing.T) {
	m := newTestManager(t)

	if result := m.WriteFileFrom("write_spec", "spec.md", "content"); IsWriteError(result) {
		t.Fatalf("Unexpected write error: %s", result)
	}

	resources, err := m.ListResources()
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("Expected 1 resource, got %d", len(resources))
	}
	if resources[0].Tool != "write_spec" {
		t.Errorf("Expected tool 'write_spec', got '%s'", resources[0].Tool)
	}
	if resources[0].Size != int64(len("content")) {
		t.Errorf("Expected size %d, got %d", len("content"), resources[0].Size)
	}
	if resources[0].Checksum == "" {
		t.Error("Checksum should be recorded")
	}
}

func TestWriteFileRejectsPaths(t *testing.T) {
	m := newTestManager(t)

	for _, name := range []string{"", "../escape.md", "dir/file.md", "..", `dir\file.md`} {
		result := m.WriteFile(name, "x")
		if !IsWriteError(result) {
			t.Errorf("Expected error result for name %q, got '%s'", name, result)
		}
	}
}

func TestReadFile(t *testing.T) {
	m := newTestManager(t)

	if result := m.WriteFile("spec.md", "hello"); IsWriteError(result) {
		t.Fatalf("Unexpected write error: %s", result)
	}

	content, err := m.ReadFile("spec.md")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if content != "hello" {
		t.Errorf("Expected 'hello', got '%s'", content)
	}
}

func TestReadFileMissing(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.ReadFile("missing.md"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestManagerWithoutStore(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if result := m.WriteFile("spec.md", "x"); IsWriteError(result) {
		t.Errorf("Write should succeed without store: %s", result)
	}

	resources, err := m.ListResources()
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if resources != nil {
		t.Error("Expected nil resources without store")
	}
}

func TestIsWriteError(t *testing.T) {
	if !IsWriteError("Error write_file: boom") {
		t.Error("Expected true for Error-prefixed string")
	}
	if IsWriteError("File written to spec.md successfully") {
		t.Error("Expected false for confirmation string")
	}
}
