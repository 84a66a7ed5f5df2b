package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects callback invocations thread-safely
type eventRecorder struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (r *eventRecorder) onIndex(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, path)
}

func (r *eventRecorder) onRemove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
}

func (r *eventRecorder) indexedPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.indexed...)
}

func (r *eventRecorder) removedPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.removed...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, root string, rec *eventRecorder) *Watcher {
	t.Helper()
	w := New(root, []string{"ts", "tsx", "js"}, rec.onIndex, rec.onRemove,
		WithDebounce(50*time.Millisecond))
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_IndexOnWrite(t *testing.T) {
	root := t.TempDir()
	rec := &eventRecorder{}
	startWatcher(t, root, rec)

	target := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(target, []byte("const x = 1\n"), 0o644))

	ok := waitFor(t, 2*time.Second, func() bool {
		return len(rec.indexedPaths()) >= 1
	})
	require.True(t, ok, "expected index callback")
	assert.Contains(t, rec.indexedPaths(), target)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	rec := &eventRecorder{}
	startWatcher(t, root, rec)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# notes\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("const x = 1\n"), 0o644))

	waitFor(t, 2*time.Second, func() bool {
		return len(rec.indexedPaths()) >= 1
	})
	for _, p := range rec.indexedPaths() {
		assert.NotEqual(t, filepath.Join(root, "notes.md"), p)
	}
}

func TestWatcher_IgnoresDeclarationFiles(t *testing.T) {
	root := t.TempDir()
	rec := &eventRecorder{}
	startWatcher(t, root, rec)

	// .d.ts files are excluded from indexing, so writes to them must not
	// trigger callbacks even though the extension list includes ts
	require.NoError(t, os.WriteFile(filepath.Join(root, "types.d.ts"),
		[]byte("export declare const x: number\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("const x = 1\n"), 0o644))

	waitFor(t, 2*time.Second, func() bool {
		return len(rec.indexedPaths()) >= 1
	})
	require.NotEmpty(t, rec.indexedPaths())
	for _, p := range rec.indexedPaths() {
		assert.NotEqual(t, filepath.Join(root, "types.d.ts"), p)
	}
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	root := t.TempDir()
	rec := &eventRecorder{}
	startWatcher(t, root, rec)

	target := filepath.Join(root, "a.ts")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("const x = 1\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(rec.indexedPaths()) >= 1
	})
	// Let any stragglers fire
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, len(rec.indexedPaths()), 2)
}

func TestWatcher_RemoveCallback(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(target, []byte("const x = 1\n"), 0o644))

	rec := &eventRecorder{}
	startWatcher(t, root, rec)

	require.NoError(t, os.Remove(target))

	ok := waitFor(t, 2*time.Second, func() bool {
		return len(rec.removedPaths()) >= 1
	})
	require.True(t, ok, "expected remove callback")
	assert.Contains(t, rec.removedPaths(), target)
}

func TestWatcher_WatchesNewSubdirectory(t *testing.T) {
	root := t.TempDir()
	rec := &eventRecorder{}
	startWatcher(t, root, rec)

	sub := filepath.Join(root, "src")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to pick up the new directory
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(sub, "b.ts")
	require.NoError(t, os.WriteFile(target, []byte("const y = 2\n"), 0o644))

	ok := waitFor(t, 2*time.Second, func() bool {
		for _, p := range rec.indexedPaths() {
			if p == target {
				return true
			}
		}
		return false
	})
	assert.True(t, ok, "expected index callback for file in new subdirectory")
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	root := t.TempDir()
	rec := &eventRecorder{}
	w := New(root, nil, rec.onIndex, rec.onRemove)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background())) // Second start is a no-op
	assert.True(t, w.Running())

	w.Stop()
	w.Stop() // Second stop is a no-op
	assert.False(t, w.Running())
}

func TestSkipDir(t *testing.T) {
	assert.True(t, skipDir("node_modules"))
	assert.True(t, skipDir(".git"))
	assert.True(t, skipDir("dist"))
	assert.False(t, skipDir("src"))
}
