package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads a rule table file when it changes and hands each valid
// table to onReload. Invalid edits are logged and the previous table stays live.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload func(*Table)
	logger   *zap.Logger
	debounce time.Duration
}

// NewWatcher watches the directory holding path, so editors that replace the
// file by rename are still seen.
func NewWatcher(path string, onReload func(*Table), logger *zap.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("rule table path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule table path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %q: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		watcher:  w,
		path:     abs,
		onReload: onReload,
		logger:   logger,
		debounce: reloadDebounce,
	}, nil
}

// Run blocks until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("rule watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	table, err := Load(w.path)
	if err != nil {
		w.logger.Error("rule table reload failed, keeping previous table",
			zap.String("path", w.path), zap.Error(err))
		return
	}

	w.logger.Info("rule table reloaded",
		zap.String("path", w.path),
		zap.String("version", table.Version()),
		zap.String("hash", table.Hash()))
	w.onReload(table)
}
