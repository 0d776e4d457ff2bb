// Package assets loads cached scenes and shares them between procedurals.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/logger"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a scene file is in none of the search
// directories.
var ErrNotFound = errors.New("scene not found")

// Loader reads a scene from a resolved file path.
type Loader func(path string) (*cache.Scene, error)

// Manager resolves scene files against search directories and keeps the
// loaded scenes until their last user releases them.
type Manager struct {
	dirs  []string
	load  Loader
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a manager reading scene descriptions with
// cache.LoadFile.
func NewManager() *Manager {
	return NewManagerWithLoader(cache.LoadFile)
}

// NewManagerWithLoader creates a manager using load to read scenes.
func NewManagerWithLoader(load Loader) *Manager {
	return &Manager{
		load:  load,
		cache: NewCache(),
	}
}

// AddSearchDir adds a directory relative scene paths are resolved against.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddSearchDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding search dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding search dir %s: not a directory", dir)
	}

	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()
	return nil
}

// Resolve returns the file a scene path refers to. Absolute paths and
// paths without search directories are returned unchanged.
func (m *Manager) Resolve(path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if filepath.IsAbs(path) || len(m.dirs) == 0 {
		return path, nil
	}
	for i := len(m.dirs) - 1; i >= 0; i-- {
		candidate := filepath.Join(m.dirs[i], path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: %w", path, ErrNotFound)
}

// Load returns the scene stored at path, reading it on first use. Every
// successful Load must be paired with a Release.
func (m *Manager) Load(path string) (*cache.Scene, error) {
	resolved, err := m.Resolve(path)
	if err != nil {
		return nil, err
	}
	return m.cache.Acquire(resolved, func() (*cache.Scene, error) {
		logger.Log.Debug("loading scene", zap.String("file", resolved))
		s, err := m.load(resolved)
		if err != nil {
			return nil, fmt.Errorf("opening scene %s: %w", path, err)
		}
		return s, nil
	})
}

// Put registers an already built scene under path with one reference.
func (m *Manager) Put(path string, s *cache.Scene) {
	m.cache.Set(path, s)
}

// Release drops one reference to the scene loaded from path.
func (m *Manager) Release(path string) {
	resolved, err := m.Resolve(path)
	if err != nil {
		resolved = path
	}
	m.cache.Release(resolved)
}

// Stats returns the scene cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Len returns the number of scenes held.
func (m *Manager) Len() int {
	return m.cache.Len()
}

// Close drops every scene and search directory.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs = nil
	m.cache.Clear()
}

// Cache holds reference counted scenes by resolved path.
type Cache struct {
	data map[string]*entry
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

type entry struct {
	scene *cache.Scene
	refs  int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*entry),
	}
}

// Acquire returns the scene stored under key, calling load on a miss. The
// lock is held while loading so concurrent callers share one read.
func (c *Cache) Acquire(key string, load func() (*cache.Scene, error)) (*cache.Scene, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.data[key]; ok {
		c.hits++
		e.refs++
		return e.scene, nil
	}
	c.misses++
	s, err := load()
	if err != nil {
		return nil, err
	}
	c.data[key] = &entry{scene: s, refs: 1}
	return s, nil
}

// Set stores a scene with one reference, replacing any previous entry.
func (c *Cache) Set(key string, s *cache.Scene) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = &entry{scene: s, refs: 1}
}

// Release drops one reference and evicts the scene when none remain.
func (c *Cache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(c.data, key)
	}
}

// Len returns the number of scenes held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
