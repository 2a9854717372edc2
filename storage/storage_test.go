package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResourceStruct(t *testing.T) {
	r := Resource{
		ID:        1,
		Name:      "crawler_spec.md",
		Path:      "/tmp/workspace/crawler_spec.md",
		Size:      1024,
		Tool:      "write_spec",
		CreatedAt: time.Now(),
	}

	if r.ID != 1 {
		t.Errorf("Expected ID 1, got %d", r.ID)
	}

	if r.Name != "crawler_spec.md" {
		t.Errorf("Expected name 'crawler_spec.md', got '%s'", r.Name)
	}
}

func TestAddGetResource(t *testing.T) {
	s := newTestStorage(t)

	if err := s.AddResource("spec.md", "/ws/spec.md", 42, "abc123", "write_spec"); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}

	r, err := s.GetResource("spec.md")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if r == nil {
		t.Fatal("Resource should not be nil")
	}
	if r.Path != "/ws/spec.md" {
		t.Errorf("Expected path '/ws/spec.md', got '%s'", r.Path)
	}
	if r.Size != 42 {
		t.Errorf("Expected size 42, got %d", r.Size)
	}
	if r.Tool != "write_spec" {
		t.Errorf("Expected tool 'write_spec', got '%s'", r.Tool)
	}
}

func TestGetResourceMissing(t *testing.T) {
	s := newTestStorage(t)

	r, err := s.GetResource("nope.md")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if r != nil {
		t.Error("Expected nil for missing resource")
	}
}

func TestAddResourceReplaces(t *testing.T) {
	s := newTestStorage(t)

	if err := s.AddResource("spec.md", "/ws/spec.md", 10, "v1", "write_spec"); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}
	if err := s.AddResource("spec.md", "/ws/spec.md", 20, "v2", "write_spec"); err != nil {
		t.Fatalf("AddResource replace failed: %v", err)
	}

	r, err := s.GetResource("spec.md")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if r.Checksum != "v2" {
		t.Errorf("Expected checksum 'v2', got '%s'", r.Checksum)
	}

	resources, err := s.ListResources()
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(resources) != 1 {
		t.Errorf("Expected 1 resource after replace, got %d", len(resources))
	}
}

func TestListResources(t *testing.T) {
	s := newTestStorage(t)

	if err := s.AddResource("a.md", "/ws/a.md", 1, "", "write_spec"); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}
	if err := s.AddResource("b.md", "/ws/b.md", 2, "", "write"); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}

	resources, err := s.ListResources()
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(resources) != 2 {
		t.Errorf("Expected 2 resources, got %d", len(resources))
	}
}

func TestDeleteResource(t *testing.T) {
	s := newTestStorage(t)

	if err := s.AddResource("a.md", "/ws/a.md", 1, "", ""); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}
	if err := s.DeleteResource("a.md"); err != nil {
		t.Fatalf("DeleteResource failed: %v", err)
	}

	r, err := s.GetResource("a.md")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if r != nil {
		t.Error("Resource should be gone after delete")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SetConfig("llm", "model", "gpt-4o"); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}

	v, err := s.GetConfig("llm", "model")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if v != "gpt-4o" {
		t.Errorf("Expected 'gpt-4o', got '%s'", v)
	}

	// Upsert
	if err := s.SetConfig("llm", "model", "gpt-4o-mini"); err != nil {
		t.Fatalf("SetConfig upsert failed: %v", err)
	}
	v, _ = s.GetConfig("llm", "model")
	if v != "gpt-4o-mini" {
		t.Errorf("Expected 'gpt-4o-mini', got '%s'", v)
	}
}

func TestGetConfigMissing(t *testing.T) {
	s := newTestStorage(t)

	v, err := s.GetConfig("nope", "nope")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if v != "" {
		t.Errorf("Expected empty value, got '%s'", v)
	}
}

func TestGetConfigSection(t *testing.T) {
	s := newTestStorage(t)

	_ = s.SetConfig("llm", "model", "gpt-4o")
	_ = s.SetConfig("llm", "baseUrl", "https://api.openai.com/v1")
	_ = s.SetConfig("workspace", "dir", "/ws")

	section, err := s.GetConfigSection("llm")
	if err != nil {
		t.Fatalf("GetConfigSection failed: %v", err)
	}
	if len(section) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(section))
	}
}

func TestStats(t *testing.T) {
	s := newTestStorage(t)

	_ = s.AddResource("a.md", "/ws/a.md", 1, "", "")
	_ = s.SetConfig("llm", "model", "gpt-4o")

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["resources"] != 1 {
		t.Errorf("Expected 1 resource, got %d", stats["resources"])
	}
	if stats["config"] != 1 {
		t.Errorf("Expected 1 config entry, got %d", stats["config"])
	}
}

func TestDeleteConfig(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SetConfig("models", "gpt-4", "8192"); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}
	if err := s.DeleteConfig("models", "gpt-4"); err != nil {
		t.Fatalf("DeleteConfig failed: %v", err)
	}

	v, err := s.GetConfig("models", "gpt-4")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if v != "" {
		t.Errorf("Expected empty value after delete, got '%s'", v)
	}

	// Deleting a missing key is not an error
	if err := s.DeleteConfig("models", "missing"); err != nil {
		t.Errorf("DeleteConfig on missing key failed: %v", err)
	}
}

func TestNewReadOnlyDB(t *testing.T) {
	// A zero-byte file is a valid empty database, but a read-only
	// connection can neither switch to WAL nor create the schema
	path := filepath.Join(t.TempDir(), "ro.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create db file: %v", err)
	}

	_, err := New("file:" + path + "?mode=ro")
	if err == nil {
		t.Error("New should fail on a read-only database")
	}
}
