package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingManager(loads *int) *Manager {
	var mu sync.Mutex
	return NewManagerWithLoader(func(path string) (*cache.Scene, error) {
		mu.Lock()
		*loads++
		mu.Unlock()
		return cache.NewScene(path), nil
	})
}

func TestManagerRefCounts(t *testing.T) {
	loads := 0
	m := countingManager(&loads)

	a, err := m.Load("x")
	require.NoError(t, err)
	b, err := m.Load("x")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, loads)

	hits, misses := m.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	m.Release("x")
	assert.Equal(t, 1, m.Len())
	m.Release("x")
	assert.Equal(t, 0, m.Len())

	m.Put("y", cache.NewScene("y"))
	s, err := m.Load("y")
	require.NoError(t, err)
	assert.Equal(t, "y", s.Filename)
	assert.Equal(t, 1, loads)

	m.Close()
	assert.Equal(t, 0, m.Len())
}

func TestManagerSearchDirs(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(low, "a.yaml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(low, "b.yaml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(high, "a.yaml"), nil, 0o644))

	m := NewManager()
	require.NoError(t, m.AddSearchDir(low))
	require.NoError(t, m.AddSearchDir(high))
	assert.Error(t, m.AddSearchDir(filepath.Join(low, "a.yaml")))

	got, err := m.Resolve("a.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(high, "a.yaml"), got)

	got, err = m.Resolve("b.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(low, "b.yaml"), got)

	_, err = m.Resolve("c.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestManagerLoadsSceneFile(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddSearchDir(filepath.Join("..", "cache", "testdata")))

	s, err := m.Load("instances.yaml")
	require.NoError(t, err)
	_, err = s.Find("/root/box")
	assert.NoError(t, err)
	m.Release("instances.yaml")
	assert.Equal(t, 0, m.Len())
}

func TestManagerLoadError(t *testing.T) {
	m := NewManagerWithLoader(func(string) (*cache.Scene, error) {
		return nil, errors.New("broken")
	})
	_, err := m.Load("x")
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestManagerConcurrentLoad(t *testing.T) {
	loads := 0
	m := countingManager(&loads)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Load("shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, loads)
	hits, misses := m.Stats()
	assert.Equal(t, 15, hits)
	assert.Equal(t, 1, misses)
}
