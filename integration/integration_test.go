package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michalmuskala/debounce/config"
	"github.com/michalmuskala/debounce/exec"
	"github.com/michalmuskala/debounce/logger"
	"github.com/michalmuskala/debounce/watcher"
)

// TestWatchRunLoop wires the full watch tool pipeline together: config
// file, recursive watcher, debouncer, and shell runner. A burst of
// writes must settle into a single command run.
func TestWatchRunLoop(t *testing.T) {
	watchDir := t.TempDir()
	outDir := t.TempDir()
	marker := filepath.Join(outDir, "ran")

	cfgPath := filepath.Join(t.TempDir(), "debounce.yml")
	cfgYaml := fmt.Sprintf(`
watch:
  paths:
    - %s
quiet: 50ms
command: "echo ran >> %s"
`, watchDir, marker)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYaml), 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, cfg.Quiet)

	w, err := watcher.NewWatcher(cfg.Watch.Paths, cfg.Watch.Ignore, cfg.Quiet, logger.Nop())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 8)
	w.OnChange(func(path string) {
		if err := exec.RunCommand(ctx, cfg.Command, &exec.ShellOptions{
			Shell:  cfg.Shell,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		}); err != nil {
			t.Errorf("command failed: %v", err)
			return
		}
		ran <- struct{}{}
	})

	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(watchDir, "source.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte(i)}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("command never ran")
	}

	// All five writes landed within one quiet period, so the command
	// ran exactly once.
	select {
	case <-ran:
		t.Fatal("command ran more than once")
	case <-time.After(300 * time.Millisecond):
	}

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", string(data))
}
