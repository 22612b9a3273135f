package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalmuskala/debounce/logger"
)

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		name    string
		ignore  []string
		path    string
		ignored bool
	}{
		{
			name:    "no patterns",
			ignore:  nil,
			path:    "src/main.go",
			ignored: false,
		},
		{
			name:    "exact glob match",
			ignore:  []string{"*.log"},
			path:    "build.log",
			ignored: true,
		},
		{
			name:    "double star pattern",
			ignore:  []string{"**/generated/**"},
			path:    "src/generated/code.go",
			ignored: true,
		},
		{
			name:    "substring match",
			ignore:  []string{"*node_modules*"},
			path:    "web/node_modules/pkg/index.js",
			ignored: true,
		},
		{
			name:    "unrelated path",
			ignore:  []string{"*.log"},
			path:    "src/main.go",
			ignored: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Watcher{ignore: tt.ignore}
			assert.Equal(t, tt.ignored, w.shouldIgnore(tt.path))
		})
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher([]string{dir}, nil, 50*time.Millisecond, logger.Nop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 8)
	w.OnChange(func(path string) {
		changed <- path
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Give the watch registration a moment before generating events.
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(dir, "file.txt")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte(i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case path := <-changed:
		assert.Equal(t, file, path)
	case <-time.After(3 * time.Second):
		t.Fatal("change was never reported")
	}

	// The burst settled into a single notification.
	select {
	case path := <-changed:
		t.Fatalf("unexpected second notification for %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherAddsNewDirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher([]string{dir}, nil, 30*time.Millisecond, logger.Nop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 8)
	w.OnChange(func(path string) {
		changed <- path
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	// A directory created after Start must join the watch set, so a
	// file written inside it is still reported.
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("directory creation was never reported")
	}

	file := filepath.Join(sub, "nested.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	select {
	case path := <-changed:
		assert.Equal(t, file, path)
	case <-time.After(3 * time.Second):
		t.Fatal("change inside new directory was never reported")
	}
}

func TestWatcherCallbackWithoutChanges(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher([]string{dir}, nil, 20*time.Millisecond, logger.Nop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 1)
	w.OnChange(func(path string) {
		changed <- path
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	select {
	case path := <-changed:
		t.Fatalf("unexpected notification for %s", path)
	case <-time.After(150 * time.Millisecond):
	}
}
