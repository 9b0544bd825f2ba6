package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ghostwriter/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultHistoryLimit is the number of articles kept before the oldest is evicted.
const DefaultHistoryLimit = 50

const brandVoiceKey = "brand_voice"

// ErrNotFound is returned when no article has the requested id.
var ErrNotFound = errors.New("article not found")

// Store is the SQLite metadata store. Binary assets live elsewhere.
type Store struct {
	db    *sql.DB
	path  string
	limit int
}

// NewStore opens (creating if needed) the database in dataDir.
func NewStore(dataDir string, historyLimit int) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ghostwriter.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if historyLimit < 1 {
		historyLimit = DefaultHistoryLimit
	}
	store := &Store{db: db, path: dbPath, limit: historyLimit}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	// seq records insertion order for eviction; id is the article's own id
	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY,
		seq INTEGER NOT NULL,
		title TEXT,
		created_at DATETIME,
		payload TEXT NOT NULL
	);`

	settingsTable := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	tables := []string{articlesTable, settingsTable, `CREATE INDEX IF NOT EXISTS idx_articles_seq ON articles (seq);`}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a new article's metadata. Inserts beyond the history limit
// evict the oldest records; their ids are returned so the caller can delete
// the matching assets.
func (s *Store) Insert(ctx context.Context, a *core.Article) ([]int64, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode article: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO articles (id, seq, title, created_at, payload)
	VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM articles), ?, ?, ?)`,
		a.ID, a.Title, a.CreatedAt.UTC(), string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to insert article: %w", err)
	}

	evicted, err := s.evict(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit article: %w", err)
	}
	return evicted, nil
}

// Update rewrites an existing article's metadata in place. It returns
// ErrNotFound when the article was deleted or evicted.
func (s *Store) Update(ctx context.Context, a *core.Article) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode article: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE articles SET title = ?, payload = ? WHERE id = ?`, a.Title, string(payload), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) evict(ctx context.Context, tx *sql.Tx) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM articles ORDER BY seq DESC LIMIT -1 OFFSET ?`, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find evicted articles: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan evicted id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to evict article %d: %w", id, err)
		}
	}
	return ids, nil
}

// Get returns the article with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*core.Article, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM articles WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return decodeArticle(payload)
}

// List returns every article, newest insertion first.
func (s *Store) List(ctx context.Context) ([]*core.Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM articles ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []*core.Article
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a, err := decodeArticle(payload)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// FindPendingVideo returns the newest article with a video in flight, or nil.
func (s *Store) FindPendingVideo(ctx context.Context) (*core.Article, error) {
	articles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range articles {
		if a.HasPendingVideo() {
			return a, nil
		}
	}
	return nil, nil
}

// Delete removes an article's metadata.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeArticle(payload string) (*core.Article, error) {
	var a core.Article
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to decode article: %w", err)
	}
	a.ImageMap = map[string]core.ImageAsset{}
	return &a, nil
}

// BrandVoice returns the stored brand voice, or nil when none is set.
func (s *Store) BrandVoice(ctx context.Context) (*core.BrandVoice, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, brandVoiceKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read brand voice: %w", err)
	}
	var voice core.BrandVoice
	if err := json.Unmarshal([]byte(value), &voice); err != nil {
		return nil, fmt.Errorf("failed to decode brand voice: %w", err)
	}
	return &voice, nil
}

// SetBrandVoice stores the brand voice. An empty voice clears it.
func (s *Store) SetBrandVoice(ctx context.Context, voice *core.BrandVoice) error {
	if voice.IsEmpty() {
		_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, brandVoiceKey)
		return err
	}
	value, err := json.Marshal(voice)
	if err != nil {
		return fmt.Errorf("failed to encode brand voice: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, brandVoiceKey, string(value))
	return err
}

// Stats represents store statistics
type Stats struct {
	ArticleCount int
	HistoryLimit int
	Size         int64
	LastUpdated  time.Time
}

// Stats returns statistics about the store
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{HistoryLimit: s.limit}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&stats.ArticleCount); err != nil {
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.Size = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}
