// Package cache keeps processed transcripts keyed by video id so a source is
// fetched and chunked at most once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"ytrag/internal/domain"
)

// JSONFileStore holds all entries in memory and reads or replaces the whole
// backing file on Load and Persist.
type JSONFileStore struct {
	mu      sync.RWMutex
	path    string
	entries []domain.CacheEntry
	log     *zap.Logger
}

func NewJSONFileStore(path string, log *zap.Logger) *JSONFileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &JSONFileStore{path: path, log: log.Named("cache")}
}

// Load replaces the in-memory entries with the file contents. A missing or
// unreadable file leaves the store empty.
func (s *JSONFileStore) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("cache file unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}
	var entries []domain.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("cache file corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return nil
	}
	s.entries = dedupe(entries)
	s.log.Debug("cache loaded", zap.String("path", s.path), zap.Int("entries", len(s.entries)))
	return nil
}

func (s *JSONFileStore) Get(_ context.Context, sourceID string) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.SourceID == sourceID {
			return append([]string(nil), e.Chunks...), true, nil
		}
	}
	return nil, false, nil
}

// Put replaces the chunks of an existing entry or appends a new one.
func (s *JSONFileStore) Put(_ context.Context, sourceID string, chunks []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]string(nil), chunks...)
	for i := range s.entries {
		if s.entries[i].SourceID == sourceID {
			s.entries[i].Chunks = cp
			return nil
		}
	}
	s.entries = append(s.entries, domain.CacheEntry{SourceID: sourceID, Chunks: cp})
	return nil
}

// Persist writes every entry to the backing file. The file is written next to
// the target and renamed over it.
func (s *JSONFileStore) Persist(_ context.Context) error {
	s.mu.RLock()
	entries := s.entries
	if entries == nil {
		entries = []domain.CacheEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod cache: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	s.log.Debug("cache persisted", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return nil
}

// Len reports the number of cached sources.
func (s *JSONFileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// dedupe keeps the last entry for each id; older files written by hand may
// repeat ids.
func dedupe(entries []domain.CacheEntry) []domain.CacheEntry {
	pos := make(map[string]int, len(entries))
	out := make([]domain.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if i, ok := pos[e.SourceID]; ok {
			out[i] = e
			continue
		}
		pos[e.SourceID] = len(out)
		out = append(out, e)
	}
	return out
}
