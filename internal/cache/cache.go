// Package cache stores recent API listings on disk for shell completion.
//
// Entries are JSON files scoped per listing, base URL and credential. The
// default TTL is 5 minutes. Disable with FLOWNET_NO_CACHE=1.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultTTL = 5 * time.Minute

type entry[T any] struct {
	CachedAt time.Time `json:"cached_at"`
	Items    T         `json:"items"`
}

// Store reads and writes one cache file.
type Store[T any] struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewStore returns a store for key under dir. scope identifies whose data it
// is (base URL and token); only its hash reaches the file name. An empty dir
// yields a store that always misses.
func NewStore[T any](dir, key, scope string) *Store[T] {
	return NewStoreWithTTL[T](dir, key, scope, DefaultTTL)
}

// NewStoreWithTTL is NewStore with a custom TTL.
func NewStoreWithTTL[T any](dir, key, scope string, ttl time.Duration) *Store[T] {
	s := &Store[T]{ttl: ttl, now: time.Now}
	if dir != "" {
		sum := sha256.Sum256([]byte(scope))
		s.path = filepath.Join(dir, sanitizeKey(key)+"_"+hex.EncodeToString(sum[:6])+".json")
	}
	return s
}

// Get returns the cached items. It reports false on a miss: no file, an
// expired or unreadable entry, or caching disabled.
func (s *Store[T]) Get() (T, bool) {
	var zero T
	if s.path == "" || disabled() {
		return zero, false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return zero, false
	}
	var e entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return zero, false
	}
	if s.now().Sub(e.CachedAt) > s.ttl {
		return zero, false
	}
	return e.Items, true
}

// Put replaces the cached items. Failures are ignored.
func (s *Store[T]) Put(items T) {
	if s.path == "" || disabled() {
		return
	}
	data, err := json.Marshal(entry[T]{CachedAt: s.now(), Items: items})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, s.path)
}

// Clear removes the cache file.
func (s *Store[T]) Clear() {
	if s.path != "" {
		_ = os.Remove(s.path)
	}
}

// ClearAll removes every cache file in dir, leaving other files alone.
func ClearAll(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && isCacheFilename(e.Name()) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

// DefaultDir returns $XDG_CACHE_HOME/flownet or the platform equivalent.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "flownet"), nil
}

func disabled() bool {
	return os.Getenv("FLOWNET_NO_CACHE") != ""
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}
	return strings.NewReplacer("/", "-", "\\", "-", "_", "-").Replace(key)
}

// isCacheFilename matches "<key>_<12 hex>.json".
func isCacheFilename(name string) bool {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return false
	}
	key, hash, ok := strings.Cut(base, "_")
	if !ok || key == "" || len(hash) != 12 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
