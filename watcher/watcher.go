// Package watcher watches directory trees and reports changes once
// they have settled, coalescing event bursts through a debouncer.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/michalmuskala/debounce/debouncer"
	"github.com/michalmuskala/debounce/logger"
)

type Watcher struct {
	paths    []string
	ignore   []string
	onChange func(path string)
	fsw      *fsnotify.Watcher
	deb      *debouncer.Debouncer
	log      logger.Logger
	mu       sync.Mutex
}

// NewWatcher watches the given paths recursively. Change notifications
// are held back until quiet time has passed without further events; the
// callback then sees the path of the last event in the burst.
func NewWatcher(paths []string, ignore []string, quiet time.Duration, log logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	w := &Watcher{
		paths:  paths,
		ignore: ignore,
		fsw:    fsw,
		log:    log,
	}

	deb, err := debouncer.New(debouncer.Func(w.settled), quiet,
		debouncer.WithLogger(log))
	if err != nil {
		fsw.Close()
		return nil, errors.Wrap(err, "failed to create debouncer")
	}
	w.deb = deb

	return w, nil
}

func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// settled is the debounced action: it runs on a worker goroutine with
// the arguments of the Apply call that armed the final timer.
func (w *Watcher) settled(args ...any) {
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()

	if fn == nil || len(args) == 0 {
		return
	}
	path, ok := args[0].(string)
	if !ok {
		return
	}

	fn(path)
}

func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		if err := w.addRecursive(path); err != nil {
			return errors.Wrapf(err, "failed to watch path %s", path)
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}

				if w.shouldIgnore(event.Name) {
					continue
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
					w.log.Debug("change detected", logger.String("path", event.Name))
					if err := w.deb.Apply(event.Name); err != nil {
						w.log.Warn("dropping change event", logger.Err(err))
					}
				}

				if event.Op&fsnotify.Create != 0 {
					info, err := os.Stat(event.Name)
					if err == nil && info.IsDir() {
						if err := w.addRecursive(event.Name); err != nil {
							w.log.Warn("failed to watch new directory",
								logger.String("path", event.Name), logger.Err(err))
						}
					}
				}
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				if err != nil {
					w.log.Warn("watch error", logger.Err(err))
				}
			}
		}
	}()

	<-ctx.Done()
	return nil
}

func (w *Watcher) Stop() {
	w.fsw.Close()
	w.deb.Stop()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if base == ".git" || base == "node_modules" || base == ".venv" || base == "__pycache__" {
				return filepath.SkipDir
			}

			if w.shouldIgnore(path) {
				return filepath.SkipDir
			}

			if err = w.fsw.Add(path); err != nil {
				return nil
			}
		}

		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	for _, pattern := range w.ignore {
		if strings.Contains(pattern, "**") {
			pattern = strings.ReplaceAll(pattern, "**", "*")
		}

		pattern = strings.TrimPrefix(pattern, "./")

		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}

		if strings.Contains(path, strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")) {
			return true
		}
	}

	return false
}
