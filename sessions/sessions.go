// Package sessions persists crawl sessions (summary, page records and the
// chunk corpus) in SQLite so a chatbot can be reloaded without re-crawling.
package sessions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/sitechat/pages"
)

// ErrSessionNotFound is returned when no session matches a lookup.
var ErrSessionNotFound = errors.New("session not found")

// Store manages crawl sessions using SQLite.
type Store struct {
	db *sql.DB
}

// Session is the metadata of one completed crawl.
type Session struct {
	ID         uuid.UUID     `json:"session_id"`
	WebsiteURL string        `json:"website_url"`
	Summary    pages.Summary `json:"summary"`
	ScrapedAt  time.Time     `json:"scraped_at"`
	ChunkCount int           `json:"chunk_count"`
}

// NewStore creates a new session store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the session tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		website_url TEXT NOT NULL,
		summary TEXT NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		scraped_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		text_content TEXT,
		faqs TEXT,
		products TEXT,
		contact TEXT,
		PRIMARY KEY (session_id, position)
	);

	CREATE TABLE IF NOT EXISTS text_chunks (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		chunk_text TEXT NOT NULL,
		PRIMARY KEY (session_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_scraped_at ON sessions(scraped_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession stores a completed crawl in one transaction. Earlier sessions
// are kept.
func (s *Store) SaveSession(websiteURL string, summary pages.Summary, records []pages.Record, chunks []string) (*Session, error) {
	session := &Session{
		ID:         uuid.New(),
		WebsiteURL: websiteURL,
		Summary:    summary,
		ScrapedAt:  time.Now().UTC(),
		ChunkCount: len(chunks),
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (session_id, website_url, summary, chunk_count, scraped_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		session.ID.String(),
		session.WebsiteURL,
		string(summaryJSON),
		session.ChunkCount,
		formatTime(&session.ScrapedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	pageStmt, err := tx.Prepare(`
		INSERT INTO pages (session_id, position, url, title, text_content, faqs, products, contact)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	for i, record := range records {
		faqs, err := marshalJSON(record.FAQs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal faqs: %w", err)
		}
		products, err := marshalJSON(record.Products)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal products: %w", err)
		}
		contact, err := marshalJSON(record.Contact)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal contact: %w", err)
		}

		_, err = pageStmt.Exec(session.ID.String(), i, record.URL, record.Title, record.Text, faqs, products, contact)
		if err != nil {
			return nil, fmt.Errorf("failed to insert page %s: %w", record.URL, err)
		}
	}

	chunkStmt, err := tx.Prepare(`
		INSERT INTO text_chunks (session_id, position, chunk_text) VALUES (?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for i, chunk := range chunks {
		if _, err := chunkStmt.Exec(session.ID.String(), i, chunk); err != nil {
			return nil, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	return session, nil
}

const sessionColumns = `session_id, website_url, summary, chunk_count, scraped_at`

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id uuid.UUID) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id.String())
	return scanSession(row)
}

// LatestSession returns the most recently saved session.
func (s *Store) LatestSession() (*Session, error) {
	row := s.db.QueryRow(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY scraped_at DESC, rowid DESC LIMIT 1`)
	return scanSession(row)
}

// ListSessions lists all sessions, newest first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY scraped_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// Chunks returns the chunk corpus of a session in its original order.
func (s *Store) Chunks(id uuid.UUID) ([]string, error) {
	if err := s.exists(id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT chunk_text FROM text_chunks WHERE session_id = ? ORDER BY position
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	chunks := []string{}
	for rows.Next() {
		var chunk string
		if err := rows.Scan(&chunk); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// Pages returns the page records of a session in crawl order.
func (s *Store) Pages(id uuid.UUID) ([]pages.Record, error) {
	if err := s.exists(id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT url, title, text_content, faqs, products, contact
		FROM pages WHERE session_id = ? ORDER BY position
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	records := []pages.Record{}
	for rows.Next() {
		var record pages.Record
		var title, text, faqs, products, contact sql.NullString
		if err := rows.Scan(&record.URL, &title, &text, &faqs, &products, &contact); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		record.Title = title.String
		record.Text = text.String

		if err := unmarshalJSON(faqs, &record.FAQs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal faqs: %w", err)
		}
		if err := unmarshalJSON(products, &record.Products); err != nil {
			return nil, fmt.Errorf("failed to unmarshal products: %w", err)
		}
		if err := unmarshalJSON(contact, &record.Contact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
		}

		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return records, nil
}

// DeleteSession deletes a session with its pages and chunks.
func (s *Store) DeleteSession(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM sessions WHERE session_id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	if _, err := tx.Exec("DELETE FROM pages WHERE session_id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM text_chunks WHERE session_id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *Store) exists(id uuid.UUID) error {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE session_id = ?", id.String()).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to query session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSession parses one sessions row. It serves both QueryRow and Query
// results.
func scanSession(row scanner) (*Session, error) {
	var idStr, websiteURL, summaryJSON, scrapedAtStr string
	var chunkCount int

	err := row.Scan(&idStr, &websiteURL, &summaryJSON, &chunkCount, &scrapedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session ID: %w", err)
	}

	session := &Session{
		ID:         id,
		WebsiteURL: websiteURL,
		ChunkCount: chunkCount,
		ScrapedAt:  parseTime(scrapedAtStr),
	}
	if err := json.Unmarshal([]byte(summaryJSON), &session.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	return session, nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalJSON(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

// Fixed-width UTC timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Truncate(0).Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
