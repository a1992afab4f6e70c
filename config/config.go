package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// SettingsStore manages runtime settings using SQLite.
type SettingsStore struct {
	db *sql.DB
}

// Settings are the values that can be changed while the server runs.
type Settings struct {
	DefaultMaxPages int `json:"default_max_pages"`
	TopK            int `json:"top_k"`
}

// SettingsUpdate holds the settings fields to change. Nil fields are left as
// they are.
type SettingsUpdate struct {
	DefaultMaxPages *int `json:"default_max_pages"`
	TopK            *int `json:"top_k"`
}

const (
	keyDefaultMaxPages = "default_max_pages"
	keyTopK            = "top_k"
)

// NewSettingsStore creates a new settings store with the given database
// path. Keys that were never written read as defaults.
func NewSettingsStore(dbPath string, defaults Settings) (*SettingsStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SettingsStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.seed(defaults); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	return store, nil
}

// initSchema creates the settings table if it doesn't exist.
func (c *SettingsStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	return err
}

// seed writes defaults for keys that have no stored value.
func (c *SettingsStore) seed(defaults Settings) error {
	query := "INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)"
	if _, err := c.db.Exec(query, keyDefaultMaxPages, strconv.Itoa(defaults.DefaultMaxPages)); err != nil {
		return err
	}
	_, err := c.db.Exec(query, keyTopK, strconv.Itoa(defaults.TopK))
	return err
}

// Close closes the database connection.
func (c *SettingsStore) Close() error {
	return c.db.Close()
}

// GetSettings retrieves the current settings.
func (c *SettingsStore) GetSettings() (*Settings, error) {
	maxPages, err := c.getInt(keyDefaultMaxPages)
	if err != nil {
		return nil, err
	}
	topK, err := c.getInt(keyTopK)
	if err != nil {
		return nil, err
	}
	return &Settings{DefaultMaxPages: maxPages, TopK: topK}, nil
}

func (c *SettingsStore) getInt(key string) (int, error) {
	var value string
	err := c.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query settings: %w", err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid stored value for %s: %w", key, err)
	}
	return n, nil
}

// UpdateSettings writes the non-nil fields of update.
func (c *SettingsStore) UpdateSettings(update SettingsUpdate) error {
	query := "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)"
	if update.DefaultMaxPages != nil {
		if _, err := c.db.Exec(query, keyDefaultMaxPages, strconv.Itoa(*update.DefaultMaxPages)); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
	}
	if update.TopK != nil {
		if _, err := c.db.Exec(query, keyTopK, strconv.Itoa(*update.TopK)); err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
	}
	return nil
}
