package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry kinds, taken from the key prefix. The file cache keeps one
// directory per kind so a single kind can be cleared on its own.
const (
	KindCompile  = "compile"
	KindEstimate = "estimate"
	KindArtifact = "artifact"
	kindOther    = "other"
)

// Kinds lists the entry kinds the keyers produce.
func Kinds() []string {
	return []string{KindCompile, KindEstimate, KindArtifact}
}

// FileCache stores entries as JSON files below a directory, one subtree
// per entry kind:
//
//	<dir>/compile/3f/a81c….json
//	<dir>/artifact/0b/77d2….json
//
// Writes go through a temporary file and a rename, so concurrent CLI runs
// never observe a half-written entry.
type FileCache struct {
	dir string
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// fileEntry is the on-disk record. Key is kept so a hash collision reads as
// a miss instead of another entry's bytes.
type fileEntry struct {
	Key       string    `json:"key"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Data      []byte    `json:"data"`
}

func (e *fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get reads key. Unreadable and expired entries are removed and reported
// as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	var e fileEntry
	if json.Unmarshal(raw, &e) != nil || e.expired(time.Now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if e.Key != key {
		return nil, false, nil
	}
	return e.Data, true, nil
}

// Set writes key. A zero ttl never expires.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now()
	e := fileEntry{Key: key, StoredAt: now, Data: data}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key; a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *FileCache) Close() error { return nil }

// KindDir returns the directory holding entries of kind.
func (c *FileCache) KindDir(kind string) string {
	return filepath.Join(c.dir, kind)
}

// path maps key to <kind>/<2 hex>/<62 hex>.json.
func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.KindDir(keyKind(key)), h[:2], h[2:]+".json")
}

// keyKind extracts the entry kind from a keyer-produced key, skipping any
// scope prefix such as "api:".
func keyKind(key string) string {
	for _, part := range strings.Split(key, ":") {
		switch part {
		case KindCompile, KindEstimate, KindArtifact:
			return part
		}
	}
	return kindOther
}

var _ Cache = (*FileCache)(nil)
