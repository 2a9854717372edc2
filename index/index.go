// Spec similarity index - SQLite + OpenAI embeddings
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	openai "github.com/sashabaranov/go-openai"
)

// Index stores generated specs with embeddings so similar past work can be
// found before drafting a new one
type Index struct {
	db        *sql.DB
	embedding EmbeddingProvider
}

// Embedding provider interface
type EmbeddingProvider interface {
	Embed(text string) ([]float32, error)
	Name() string
}

// OpenAI embedding
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Embed(text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	result := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		result[i] = float32(v)
	}
	return result, nil
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

// Entry is an indexed spec
type Entry struct {
	ID        int64
	Name      string
	Task      string
	Content   string
	CreatedAt time.Time
}

// Result is a search hit with its similarity score
type Result struct {
	Entry Entry
	Score float32 // 0-1, higher is closer
}

// New opens (or creates) a spec index backed by dbPath
func New(dbPath string, embedding EmbeddingProvider) (*Index, error) {
	if embedding == nil {
		return nil, fmt.Errorf("embedding provider required")
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection failed: %v", err)
	}

	idx := &Index{db: db, embedding: embedding}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}
	return idx, nil
}

func (idx *Index) initSchema() error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS specs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			task TEXT NOT NULL,
			content TEXT,
			vector TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// Add indexes a generated spec. The embedding covers the task description,
// since search queries are task descriptions too.
func (idx *Index) Add(name, task, content string) error {
	vec, err := idx.embedding.Embed(task)
	if err != nil {
		return err
	}
	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	_, err = idx.db.Exec(
		"INSERT OR REPLACE INTO specs (name, task, content, vector) VALUES (?, ?, ?, ?)",
		name, task, content, string(vecJSON),
	)
	return err
}

// Search returns up to k specs closest to the query task description
func (idx *Index) Search(query string, k int) ([]Result, error) {
	if k <= 0 {
		k = 5
	}
	queryVec, err := idx.embedding.Embed(query)
	if err != nil {
		return nil, err
	}

	rows, err := idx.db.Query("SELECT id, name, task, content, vector, created_at FROM specs")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var e Entry
		var vecJSON string
		if err := rows.Scan(&e.ID, &e.Name, &e.Task, &e.Content, &vecJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			continue
		}
		results = append(results, Result{
			Entry: e,
			Score: cosineSimilarity(queryVec, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of indexed specs
func (idx *Index) Count() (int, error) {
	var n int
	err := idx.db.QueryRow("SELECT COUNT(*) FROM specs").Scan(&n)
	return n, err
}

// Close closes the index
func (idx *Index) Close() error {
	return idx.db.Close()
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / float32(math.Sqrt(float64(normA*normB)))
}
