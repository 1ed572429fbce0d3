// Package pgvector stores transcript chunk embeddings in Postgres using the
// pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"ytrag/internal/domain"
	"ytrag/internal/vectorstore"
)

const DefaultTable = "transcript_chunks"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Storage is a vector store over a Postgres table with a vector column.
type Storage struct {
	db    *sql.DB
	table string
}

// Open connects to Postgres through the pgx database/sql driver.
func Open(ctx context.Context, dsn, table string) (*Storage, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Storage{db: db, table: table}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	for _, stmt := range schema(s.table, dimension) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []vectorstore.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, source_id, chunk_index, text, embedding) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, embedding = EXCLUDED.embedding`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.SourceID, r.Index, r.Text, pgvector.NewVector(r.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", r.Index, r.SourceID, err)
		}
	}
	return tx.Commit()
}

// Search ranks by cosine distance; score is 1 - distance.
func (s *Storage) Search(ctx context.Context, vector []float32, sourceID string, k int) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, searchQuery(s.table), pgvector.NewVector(vector), sourceID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		r := domain.SearchResult{Chunk: domain.Chunk{SourceID: sourceID}}
		if err := rows.Scan(&r.Chunk.Index, &r.Chunk.Text, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Storage) Close() error { return s.db.Close() }

func schema(table string, dimension int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq         BIGSERIAL PRIMARY KEY,
			id          TEXT NOT NULL UNIQUE,
			source_id   TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text        TEXT NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, table, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source_id)`, table, table),
	}
}

func searchQuery(table string) string {
	return fmt.Sprintf(`SELECT chunk_index, text, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE source_id = $2
		ORDER BY embedding <=> $1, seq
		LIMIT $3`, table)
}
