// Reloads the table when its file is changed by another writer.

package csvdb

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the table whenever its file is written, created or renamed
// over, until ctx is done.
//
// The directory is watched rather than the file so that editors replacing the
// file are noticed. onReload, if not nil, is called with the result of each
// reload. The table's own writes trigger a reload too; it is a no-op.
func (t *Table) Watch(ctx context.Context, onReload func(error)) error {
	if err := t.Err(); err != nil {
		return err
	}
	abs, err := filepath.Abs(t.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", t.path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				err := t.Reload()
				if err != nil {
					slog.WarnContext(ctx, "Failed to reload table", "path", t.path, "err", err)
				} else {
					slog.DebugContext(ctx, "Reloaded table", "path", t.path, "rows", t.Len())
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching table", "path", t.path, "err", err)
			}
		}
	}()
	return nil
}
