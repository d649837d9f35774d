package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when no window is configured.
const DefaultDebounce = 300 * time.Millisecond

// Change operations reported in ChangeEvent.Op.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// ChangeEvent represents a filesystem change.
type ChangeEvent struct {
	Path string
	Op   string
}

// DirWatcher watches a single directory for changes to the files a filter
// admits. Editors and atomic writers replace files by rename, so the
// directory is watched rather than the file.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	filter   *PatternFilter
	debounce time.Duration
	onChange func(ChangeEvent)
	logger   *slog.Logger
}

// NewDirWatcher starts watching dir. Call Run to deliver events.
func NewDirWatcher(dir string, filter *PatternFilter, debounce time.Duration, onChange func(ChangeEvent), logger *slog.Logger) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirWatcher{
		watcher:  w,
		dir:      dir,
		filter:   filter,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run delivers debounced change events until ctx is cancelled. Watcher
// errors are logged and do not stop the loop.
func (w *DirWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debouncer := NewDebouncer(w.debounce, func(ev ChangeEvent) {
		if w.onChange != nil {
			w.onChange(ev)
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			op := opName(event.Op)
			if op == "" || !w.filter.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(ChangeEvent{Path: event.Name, Op: op})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "dir", w.dir, "error", err)
		}
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return ""
	}
}
