package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps entries in a SQLite table. Every Put is durable on its
// own, so Persist has nothing left to do.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{db: db, log: log.Named("cache")}, nil
}

// Load creates the schema when needed.
func (s *SQLiteStore) Load(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS transcripts (
		video_id TEXT PRIMARY KEY,
		chunks TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	)`)
	if err != nil {
		return fmt.Errorf("migrate sqlite cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sourceID string) ([]string, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT chunks FROM transcripts WHERE video_id = ?`, sourceID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached transcript: %w", err)
	}
	chunks, ok := decodeChunks(s.log, sourceID, []byte(raw))
	return chunks, ok, nil
}

// decodeChunks parses a stored JSON array. A corrupt value is logged and
// reported as a miss.
func decodeChunks(log *zap.Logger, sourceID string, raw []byte) ([]string, bool) {
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err != nil {
		log.Warn("cached transcript corrupt, treating as miss", zap.String("video_id", sourceID), zap.Error(err))
		return nil, false
	}
	return chunks, true
}

func (s *SQLiteStore) Put(ctx context.Context, sourceID string, chunks []string) error {
	if chunks == nil {
		chunks = []string{}
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO transcripts (video_id, chunks) VALUES (?, ?)
		ON CONFLICT(video_id) DO UPDATE SET chunks = excluded.chunks, updated_at = strftime('%s','now')`,
		sourceID, string(data))
	if err != nil {
		return fmt.Errorf("write cached transcript: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Persist(context.Context) error { return nil }

func (s *SQLiteStore) Close() error { return s.db.Close() }
