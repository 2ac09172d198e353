package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-gateway/internal/domain"
	"github.com/helixir/paper-search-gateway/internal/observability"
)

// Store is a file-backed cache mapping fingerprints to cache entries. The
// whole document is read and rewritten on every operation; no file locking
// is attempted, so concurrent writers race and the last one wins. That is
// an accepted trade-off for this cache, not a bug.
//
// A mutex serializes access within this process. Read failures (missing or
// corrupt file) degrade to an empty cache.
type Store struct {
	path    string
	mu      sync.Mutex
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewStore creates a store persisting to the given file path. Metrics may
// be nil.
func NewStore(path string, logger zerolog.Logger, metrics *observability.Metrics) *Store {
	s := &Store{
		path:    path,
		logger:  logger.With().Str("component", "cache_store").Logger(),
		metrics: metrics,
	}

	// The cache never evicts or expires entries. Surface that at startup
	// together with the current size so growth is visible in the logs.
	entries := s.Len()
	s.logger.Info().
		Str("path", path).
		Int("entries", entries).
		Msg("result cache opened; entries never expire and the file grows unbounded")
	if s.metrics != nil {
		s.metrics.SetCacheEntries(entries)
	}

	return s
}

// Get looks up a cache entry by fingerprint. Any read problem is treated as
// a miss.
func (s *Store) Get(fingerprint string) (domain.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entry, ok := entries[fingerprint]
	if s.metrics != nil {
		if ok {
			s.metrics.RecordCacheHit()
		} else {
			s.metrics.RecordCacheMiss()
		}
	}
	return entry, ok
}

// Put stores a cache entry under the given fingerprint, rewriting the whole
// backing file. The caller may ignore the returned error: a cache write
// failure must never fail the enclosing request.
func (s *Store) Put(fingerprint string, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entries[fingerprint] = entry

	if err := s.save(entries); err != nil {
		if s.metrics != nil {
			s.metrics.RecordCacheWriteFailure()
		}
		s.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache write failed")
		return err
	}

	if s.metrics != nil {
		s.metrics.SetCacheEntries(len(entries))
	}
	return nil
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load())
}

// load reads the whole cache document, degrading to an empty cache on any
// failure.
func (s *Store) load() map[string]domain.CacheEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("cache file unreadable, starting empty")
		}
		return make(map[string]domain.CacheEntry)
	}

	var entries map[string]domain.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("cache file corrupt, starting empty")
		return make(map[string]domain.CacheEntry)
	}
	if entries == nil {
		entries = make(map[string]domain.CacheEntry)
	}
	return entries
}

// save rewrites the whole cache document.
func (s *Store) save(entries map[string]domain.CacheEntry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}
