// Package watch reports changes to a file made by other processes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long a file must stay unchanged before a change is
// reported.
const DefaultQuiet = 300 * time.Millisecond

// File calls onChange once a burst of writes to path (or to its SQLite
// journal and WAL siblings) has been quiet for quiet. It watches the parent
// directory so the file may be replaced or created later. File blocks until
// ctx is done.
func File(ctx context.Context, path string, quiet time.Duration, logger *slog.Logger, onChange func()) error {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("Watching store for outside changes", "path", path)

	base := filepath.Base(path)
	ticker := time.NewTicker(quiet / 2)
	defer ticker.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, base) {
				continue
			}
			pending = time.Now()
		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= quiet {
				pending = time.Time{}
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Store watch error", "error", err)
		}
	}
}

func relevant(ev fsnotify.Event, base string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(ev.Name)
	return name == base || strings.HasPrefix(name, base+"-")
}
