package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/utils"
)

// Watcher drops the provider's cleaned cache whenever the source file is
// written or replaced, so the next run reloads it.
type Watcher struct {
	watcher  *fsnotify.Watcher
	provider *Provider
	source   string
	logger   *slog.Logger
	// invalidated receives one value per cache invalidation; nil disables it.
	invalidated chan<- string
}

// NewWatcher watches the directory of the provider's source file. Watching
// the directory keeps working when editors replace the file by rename.
func NewWatcher(p *Provider, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	source, err := filepath.Abs(p.SourcePath())
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	if err := utils.EnsureDir(source); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(source)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(source), err)
	}
	return &Watcher{watcher: w, provider: p, source: source, logger: logger}, nil
}

// Run handles events until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if err := w.provider.Invalidate(); err != nil {
				w.logger.WarnContext(ctx, "cache invalidation failed", "error", err)
				continue
			}
			w.logger.InfoContext(ctx, "source changed, cache dropped", "path", event.Name, "op", event.Op.String())
			if w.invalidated != nil {
				select {
				case w.invalidated <- event.Name:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch source: %w", err)
		}
	}
}

func (w *Watcher) relevant(e fsnotify.Event) bool {
	name, err := filepath.Abs(e.Name)
	if err != nil || name != w.source {
		return false
	}
	return e.Has(fsnotify.Write) || e.Has(fsnotify.Create) || e.Has(fsnotify.Rename)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
