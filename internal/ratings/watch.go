package ratings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// WatchDebounce is how long Watch waits after the last event before calling back.
	WatchDebounce = 100 * time.Millisecond
	// WatchMaxWait bounds the delay from the first pending event, so a store that is
	// written continuously still triggers onChange.
	WatchMaxWait = time.Second
)

// Watch calls onChange after the file at path is written, created or replaced,
// until ctx is cancelled or onChange returns an error.
//
// The parent directory is watched rather than the file, since atomic writes replace the inode.
// Bursts of events are collapsed into a single call, fired at most WatchMaxWait
// after the first event of the burst.
func Watch(ctx context.Context, path string, onChange func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	timer := time.NewTimer(WatchDebounce)
	timer.Stop()
	defer timer.Stop()

	var pending time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending.IsZero() {
				pending = time.Now()
			}
			timer.Reset(min(WatchDebounce, WatchMaxWait-time.Since(pending)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher: %w", err)
		case <-timer.C:
			pending = time.Time{}
			if err := onChange(); err != nil {
				return err
			}
		}
	}
}
