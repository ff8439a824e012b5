package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"schedule-bot/pkg/logx"
)

const reloadDebounce = 250 * time.Millisecond

// Watch re-parses the YAML file at path whenever it changes and passes the
// result to fn. Editors write files in bursts, so reloads are debounced.
// A file that fails to parse is logged and skipped. Watch returns when ctx
// ends.
func Watch(ctx context.Context, path string, fn func(*Config), log logx.Logger) error {
	log = log.With(logx.String("component", "config"), logx.String("path", path))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: rename-on-save replaces the file's inode.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	file := filepath.Base(path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		cfg, err := Parse(path)
		if err != nil {
			log.Warn("config reload failed", logx.Err(err))
			return
		}
		log.Info("config reloaded")
		fn(cfg)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", logx.Err(err))
		}
	}
}
