package index

import (
	"path/filepath"
	"strings"
	"testing"
)

// fakeEmbedding maps known words onto fixed unit vectors so similarity
// is deterministic in tests
type fakeEmbedding struct{}

func (f *fakeEmbedding) Embed(text string) ([]float32, error) {
	vec := make([]float32, 3)
	if strings.Contains(text, "crawler") {
		vec[0] = 1
	}
	if strings.Contains(text, "parser") {
		vec[1] = 1
	}
	if strings.Contains(text, "cache") {
		vec[2] = 1
	}
	if vec[0] == 0 && vec[1] == 0 && vec[2] == 0 {
		vec[0], vec[1], vec[2] = 1, 1, 1
	}
	return vec, nil
}

func (f *fakeEmbedding) Name() string { return "fake" }

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(filepath.Join(t.TempDir(), "index.db"), &fakeEmbedding{})
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestNewRequiresEmbedding(t *testing.T) {
	if _, err := New("/tmp/x.db", nil); err == nil {
		t.Error("Expected error for nil embedding provider")
	}
}

func TestAddAndCount(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.Add("crawler_spec.md", "build a web crawler", "# Spec"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	n, err := idx.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 entry, got %d", n)
	}
}

func TestAddReplacesByName(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.Add("spec.md", "build a web crawler", "v1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := idx.Add("spec.md", "build a web crawler", "v2"); err != nil {
		t.Fatalf("Add replace failed: %v", err)
	}

	n, _ := idx.Count()
	if n != 1 {
		t.Errorf("Expected 1 entry after replace, got %d", n)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.Add("crawler_spec.md", "build a web crawler", "crawler spec"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := idx.Add("parser_spec.md", "build a log parser", "parser spec"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := idx.Search("a fast crawler", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Entry.Name != "crawler_spec.md" {
		t.Errorf("Expected crawler spec first, got '%s'", results[0].Entry.Name)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("Results should be sorted by score: %v >= %v", results[0].Score, results[1].Score)
	}
}

func TestSearchLimit(t *testing.T) {
	idx := newTestIndex(t)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		if err := idx.Add(name, "build a cache "+name, "spec"); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	results, err := idx.Search("cache", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search("anything", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}

	if s := cosineSimilarity(a, b); s < 0.999 {
		t.Errorf("Identical vectors should score ~1, got %f", s)
	}
	if s := cosineSimilarity(a, c); s != 0 {
		t.Errorf("Orthogonal vectors should score 0, got %f", s)
	}
	if s := cosineSimilarity(a, []float32{1, 0}); s != 0 {
		t.Errorf("Mismatched lengths should score 0, got %f", s)
	}
}
