// Storage module - SQLite data storage

package storage

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gliderlab/specforge/pkg/config"
)

// addColumnSafe adds a column to a table if it doesn't exist
// Returns true if column was added, false if it already exists or error
func addColumnSafe(db *sql.DB, table, column, definition string) bool {
	// Check if column already exists
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table), column).Scan(&count)
	if err == nil && count > 0 {
		return false // column already exists
	}

	// Column doesn't exist, try to add it
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	if err != nil {
		log.Printf("[WARN] Migration: add column %s.%s failed: %v (may be OK if already exists)", table, column, err)
		return false
	}
	return true
}

type Storage struct {
	db *sql.DB

	// Prepared statements for the hot paths
	stmtAddResource *sql.Stmt
	stmtGetResource *sql.Stmt
	stmtGetConfig   *sql.Stmt
	stmtSetConfig   *sql.Stmt
}

// Resource is a record of a file written through the resource manager
type Resource struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	Tool      string    `json:"tool"` // tool that produced the resource
	CreatedAt time.Time `json:"created_at"`
}

type Config struct {
	ID        int64     `json:"id"`
	Section   string    `json:"section"` // e.g., "llm", "workspace"
	Key       string    `json:"key"`     // e.g., "apiKey", "model"
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(dbPath string) (*Storage, error) {
	cfg := config.DefaultStorageConfig()
	cfg.DBPath = dbPath
	return NewWithConfig(cfg)
}

// NewWithConfig creates storage with injected configuration
func NewWithConfig(cfg config.StorageConfig) (*Storage, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path required")
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection failed: %v", err)
	}

	s := &Storage{db: db}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous: %v", err)
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}

	if err := s.initPreparedStmts(); err != nil {
		log.Printf("[WARN] Failed to prepare statements: %v (continuing without prepared statements)", err)
	}

	log.Printf("[OK] Storage: database %s", cfg.DBPath)
	return s, nil
}

// initPreparedStmts prepares frequently used SQL statements for performance
func (s *Storage) initPreparedStmts() error {
	var err error

	if s.stmtAddResource, err = s.db.Prepare("INSERT OR REPLACE INTO resources (name, path, size, checksum, tool) VALUES (?, ?, ?, ?, ?)"); err != nil {
		return fmt.Errorf("AddResource: %v", err)
	}
	if s.stmtGetResource, err = s.db.Prepare("SELECT id, name, path, size, checksum, tool, created_at FROM resources WHERE name = ?"); err != nil {
		return fmt.Errorf("GetResource: %v", err)
	}
	if s.stmtGetConfig, err = s.db.Prepare("SELECT value FROM config WHERE section = ? AND key = ?"); err != nil {
		return fmt.Errorf("GetConfig: %v", err)
	}
	if s.stmtSetConfig, err = s.db.Prepare("INSERT INTO config (section, key, value) VALUES (?, ?, ?) ON CONFLICT(section, key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP"); err != nil {
		return fmt.Errorf("SetConfig: %v", err)
	}

	return nil
}

func (s *Storage) initSchema() error {
	// Resources table
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS resources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL,
			size INTEGER DEFAULT 0,
			checksum TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Config table
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			section TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(section, key)
		)
	`)
	if err != nil {
		return err
	}

	// Migration: tool column added after first release
	addColumnSafe(s.db, "resources", "tool", "TEXT DEFAULT ''")

	return nil
}

// ============ Resources ============

// AddResource records a written resource; an existing record with the same
// name is replaced
func (s *Storage) AddResource(name, path string, size int64, checksum, tool string) error {
	if s.stmtAddResource != nil {
		_, err := s.stmtAddResource.Exec(name, path, size, checksum, tool)
		return err
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO resources (name, path, size, checksum, tool) VALUES (?, ?, ?, ?, ?)",
		name, path, size, checksum, tool,
	)
	return err
}

// GetResource returns a resource record by name, nil if absent
func (s *Storage) GetResource(name string) (*Resource, error) {
	var r Resource
	var row *sql.Row
	if s.stmtGetResource != nil {
		row = s.stmtGetResource.QueryRow(name)
	} else {
		row = s.db.QueryRow("SELECT id, name, path, size, checksum, tool, created_at FROM resources WHERE name = ?", name)
	}
	err := row.Scan(&r.ID, &r.Name, &r.Path, &r.Size, &r.Checksum, &r.Tool, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResources returns all resource records, newest first
func (s *Storage) ListResources() ([]Resource, error) {
	rows, err := s.db.Query(
		"SELECT id, name, path, size, checksum, tool, created_at FROM resources ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []Resource
	for rows.Next() {
		var r Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.Size, &r.Checksum, &r.Tool, &r.CreatedAt); err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// DeleteResource removes a resource record by name
func (s *Storage) DeleteResource(name string) error {
	_, err := s.db.Exec("DELETE FROM resources WHERE name = ?", name)
	return err
}

// ============ Config ============

func (s *Storage) SetConfig(section, key, value string) error {
	if s.stmtSetConfig != nil {
		_, err := s.stmtSetConfig.Exec(section, key, value)
		return err
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO config (section, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		section, key, value,
	)
	return err
}

// GetConfig reads a config value
func (s *Storage) GetConfig(section, key string) (string, error) {
	var value string
	var row *sql.Row
	if s.stmtGetConfig != nil {
		row = s.stmtGetConfig.QueryRow(section, key)
	} else {
		row = s.db.QueryRow("SELECT value FROM config WHERE section = ? AND key = ?", section, key)
	}
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetConfigSection reads all config values in a section
func (s *Storage) GetConfigSection(section string) (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM config WHERE section = ?", section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		config[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return config, nil
}

// DeleteConfig deletes a config entry
func (s *Storage) DeleteConfig(section, key string) error {
	_, err := s.db.Exec("DELETE FROM config WHERE section = ? AND key = ?", section, key)
	return err
}

// ============ Misc ============

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Stats() (map[string]int, error) {
	stats := make(map[string]int)

	// Single query for all counts
	row := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM resources),
			(SELECT COUNT(*) FROM config)
	`)
	var resources, configs int
	if err := row.Scan(&resources, &configs); err != nil {
		return nil, err
	}
	stats["resources"] = resources
	stats["config"] = configs

	return stats, nil
}
