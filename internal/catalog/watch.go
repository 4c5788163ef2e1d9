package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kokistudios/atlas/internal/source"
)

// DefaultDebounce is how long the watcher waits for further changes before reloading.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reloads a catalog when its local source files change.
type Watcher struct {
	cat      *Catalog
	fsw      *fsnotify.Watcher
	files    map[string]bool
	Debounce time.Duration
}

// NewWatcher watches the directories holding the catalog's local sources.
// Directories are watched rather than files so that editors which replace a
// file by rename are still seen. Remote sources are ignored.
func (c *Catalog) NewWatcher() (*Watcher, error) {
	files := map[string]bool{}
	for _, loc := range []string{c.cfg.RecordsLocation, c.cfg.CapabilitiesLocation} {
		if loc == "" || source.IsRemote(loc) {
			continue
		}
		abs, err := filepath.Abs(source.LocalPath(loc))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", loc, err)
		}
		files[abs] = true
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no local sources to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dirs := map[string]bool{}
	for f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", d, err)
		}
		c.logger.Debug("Watching directory", "path", d)
	}
	return &Watcher{cat: c, fsw: fsw, files: files, Debounce: DefaultDebounce}, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done, reloading the catalog after each burst of
// changes and passing the report to onReload.
func (w *Watcher) Run(ctx context.Context, onReload func(*LoadReport)) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.cat.logger.Debug("Source change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cat.logger.Warn("Watcher error", "err", err)

		case <-timer.C:
			report := w.cat.Load(ctx)
			if onReload != nil {
				onReload(report)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files[abs]
}

// Watch runs a Watcher until ctx is done.
func (c *Catalog) Watch(ctx context.Context, onReload func(*LoadReport)) error {
	w, err := c.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx, onReload)
}
