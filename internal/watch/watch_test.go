package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []map[string]any
}

func (r *recorder) record(m map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, m)
}

func (r *recorder) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return nil
	}
	return r.seen[len(r.seen)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestReloadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extras.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user: ada\nroles: [admin]\n"), 0o600))

	rec := &recorder{}
	w, err := NewExtras(path, 0, logr.Discard(), rec.record)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	w.Reload()
	require.Equal(t, 1, rec.count())
	assert.Equal(t, "ada", rec.last()["user"])
}

func TestReloadKeepsPreviousOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extras.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0o600))

	rec := &recorder{}
	w, err := NewExtras(path, 0, logr.Discard(), rec.record)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	w.Reload()
	require.NoError(t, os.WriteFile(path, []byte(`{"a": `), 0o600))
	w.Reload()
	assert.Equal(t, 1, rec.count())
}

func TestRunPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extras.yaml")
	require.NoError(t, os.WriteFile(path, []byte("step: 1\n"), 0o600))

	rec := &recorder{}
	w, err := NewExtras(path, 10*time.Millisecond, logr.Discard(), rec.record)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("step: 2\n"), 0o600))

	require.Eventually(t, func() bool {
		m := rec.last()
		return m != nil && m["step"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewExtrasMissingDirectory(t *testing.T) {
	_, err := NewExtras(filepath.Join(t.TempDir(), "nope", "extras.yaml"), 0, logr.Discard(), nil)
	require.Error(t, err)
}
