package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aerynos/carve/pkg/strategy"
)

// reloadDelay debounces bursts of filesystem events from editors that
// write files in several syscalls.
const reloadDelay = 500 * time.Millisecond

// Watch monitors the given paths for strategy document changes and invokes
// reloadFn with the freshly loaded definitions after each change settles.
// It returns once the watcher is installed; event processing continues in
// the background until the context is cancelled.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]*strategy.Strategy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			l.logger.WithError(err).Warnf("failed to stat %s for watching", path)
			continue
		}
		if info.IsDir() {
			if err := watchDirectory(watcher, path); err != nil {
				l.logger.WithError(err).Warnf("failed to watch directory %s", path)
			}
		} else if err := watcher.Add(path); err != nil {
			l.logger.WithError(err).Warnf("failed to watch file %s", path)
		}
	}

	go l.processEvents(ctx, watcher, paths, reloadFn)

	l.logger.Infof("watching %d path(s) for strategy changes", len(paths))
	return nil
}

// watchDirectory registers a directory tree with the watcher.
func watchDirectory(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// processEvents debounces change events and triggers reloads.
func (l *Loader) processEvents(ctx context.Context, watcher *fsnotify.Watcher, paths []string, reloadFn func([]*strategy.Strategy) error) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".hcl") {
				continue
			}
			l.logger.Debugf("strategy file changed: %s (%s)", event.Name, event.Op)

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				strategies, err := l.LoadPaths(paths)
				if err != nil {
					l.logger.WithError(err).Error("reload failed, keeping previous strategies")
					return
				}
				if err := reloadFn(strategies); err != nil {
					l.logger.WithError(err).Error("reload callback failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.WithError(err).Warn("watcher error")
		}
	}
}
