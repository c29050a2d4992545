// Package cache keeps rasterized diagrams and the copy history in a local
// SQLite database so repeated copies of an unchanged diagram skip rendering.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type CacheConfig struct {
	RenderTTL    time.Duration
	HistoryLimit int
}

var DefaultCacheConfig = CacheConfig{
	RenderTTL:    7 * 24 * time.Hour,
	HistoryLimit: 500,
}

type Manager struct {
	db     *sql.DB
	config CacheConfig
}

// Render is a cached conversion result.
type Render struct {
	Key       string
	Format    string
	MIME      string
	Width     int
	Height    int
	Data      []byte
	UpdatedAt time.Time
}

// HistoryEntry records one successful copy.
type HistoryEntry struct {
	ID       int64     `json:"id" yaml:"id"`
	Hash     string    `json:"hash" yaml:"hash"`
	Source   string    `json:"source" yaml:"source"`
	Format   string    `json:"format" yaml:"format"`
	Bytes    int       `json:"bytes" yaml:"bytes"`
	Width    int       `json:"width,omitempty" yaml:"width,omitempty"`
	Height   int       `json:"height,omitempty" yaml:"height,omitempty"`
	CopiedAt time.Time `json:"copied_at" yaml:"copied_at"`
}

func NewManagerWithConfig(dbPath string, config CacheConfig) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// the watch session writes from timer goroutines
	db.SetMaxOpenConns(1)

	cm := &Manager{db: db, config: config}
	if err := cm.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cm, nil
}

func (cm *Manager) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS renders (
			key TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			mime TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			data BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hash TEXT NOT NULL,
			source TEXT,
			format TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			width INTEGER,
			height INTEGER,
			copied_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_renders_updated_at ON renders(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_copied_at ON history(copied_at)`,
	}

	for _, query := range queries {
		if _, err := cm.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (cm *Manager) Close() error {
	return cm.db.Close()
}

// GetRender returns the cached render for key, or nil when it is missing or
// older than the render TTL.
func (cm *Manager) GetRender(key string) (*Render, error) {
	r := Render{Key: key}
	err := cm.db.QueryRow(
		`SELECT format, mime, width, height, data, updated_at FROM renders WHERE key = ?`, key,
	).Scan(&r.Format, &r.MIME, &r.Width, &r.Height, &r.Data, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query render: %w", err)
	}
	if cm.config.RenderTTL > 0 && time.Since(r.UpdatedAt) > cm.config.RenderTTL {
		return nil, nil
	}
	return &r, nil
}

func (cm *Manager) SaveRender(r Render) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err := cm.db.Exec(`
		INSERT OR REPLACE INTO renders (key, format, mime, width, height, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Key, r.Format, r.MIME, r.Width, r.Height, r.Data, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save render: %w", err)
	}
	return nil
}

// RecordCopy appends e to the history and trims it to the history limit.
func (cm *Manager) RecordCopy(e HistoryEntry) error {
	if e.CopiedAt.IsZero() {
		e.CopiedAt = time.Now()
	}

	tx, err := cm.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO history (hash, source, format, bytes, width, height, copied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Hash, e.Source, e.Format, e.Bytes, e.Width, e.Height, e.CopiedAt.UTC()); err != nil {
		return fmt.Errorf("failed to record copy: %w", err)
	}

	if cm.config.HistoryLimit > 0 {
		if _, err := tx.Exec(`
			DELETE FROM history WHERE id NOT IN (
				SELECT id FROM history ORDER BY id DESC LIMIT ?
			)`, cm.config.HistoryLimit); err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// History returns the newest entries first.
func (cm *Manager) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = cm.config.HistoryLimit
	}
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := cm.db.Query(`
		SELECT id, hash, COALESCE(source, ''), format, bytes, COALESCE(width, 0), COALESCE(height, 0), copied_at
		FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Hash, &e.Source, &e.Format, &e.Bytes, &e.Width, &e.Height, &e.CopiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes expired renders and returns how many were removed.
func (cm *Manager) Prune() (int64, error) {
	if cm.config.RenderTTL <= 0 {
		return 0, nil
	}
	res, err := cm.db.Exec(`DELETE FROM renders WHERE updated_at < ?`, time.Now().Add(-cm.config.RenderTTL).UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune renders: %w", err)
	}
	return res.RowsAffected()
}

// Clear empties both tables.
func (cm *Manager) Clear() error {
	for _, table := range []string{"renders", "history"} {
		if _, err := cm.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (cm *Manager) GetCacheInfo() (map[string]any, error) {
	var renderCount, historyCount int
	var renderBytes sql.NullInt64

	if err := cm.db.QueryRow("SELECT COUNT(*), SUM(LENGTH(data)) FROM renders").Scan(&renderCount, &renderBytes); err != nil {
		return nil, fmt.Errorf("failed to query render count: %w", err)
	}
	if err := cm.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&historyCount); err != nil {
		return nil, fmt.Errorf("failed to query history count: %w", err)
	}

	return map[string]any{
		"renders_count": renderCount,
		"renders_bytes": renderBytes.Int64,
		"history_count": historyCount,
	}, nil
}

func GetDBPath() string {
	if p := os.Getenv("MERMAIDCOPY_CACHE_DB"); p != "" {
		return p
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "mermaidcopy", "cache.db")
}

func NewManagerFromEnv() (*Manager, error) {
	return NewManagerWithConfig(GetDBPath(), LoadCacheConfig())
}

func LoadCacheConfig() CacheConfig {
	config := DefaultCacheConfig

	if ttlStr := os.Getenv("MERMAIDCOPY_CACHE_TTL"); ttlStr != "" {
		if d, err := time.ParseDuration(ttlStr); err == nil {
			config.RenderTTL = d
		}
	}

	if limitStr := os.Getenv("MERMAIDCOPY_HISTORY_LIMIT"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n >= 0 {
			config.HistoryLimit = n
		}
	}

	return config
}
