package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/viyadb/viyadb/pkg/config"
)

// OnFile is called with the absolute path of a file that newly appeared
// in a watched directory and matched an accepted extension.
type OnFile func(path string)

// Watcher watches one table's configured directory and invokes onFile
// for every new matching file moved into it.
type Watcher struct {
	dir        string
	extensions map[string]struct{}
	onFile     OnFile
	fsw        *fsnotify.Watcher
}

// New builds a watcher over dir, restricted to extensions (defaulting to
// config.DefaultWatchExtension when empty).
func New(dir string, extensions []string, onFile OnFile) (*Watcher, error) {
	if len(extensions) == 0 {
		extensions = []string{config.DefaultWatchExtension}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[e] = struct{}{}
	}

	return &Watcher{dir: dir, extensions: exts, onFile: onFile, fsw: fsw}, nil
}

// Run drives the watcher's event loop until ctx is cancelled. A file
// moved or created into the directory that matches an accepted
// extension triggers onFile; a periodic poll rescan (config.
// WatchPollInterval) covers filesystems that drop rename events.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	ticker := time.NewTicker(config.WatchPollInterval)
	defer ticker.Stop()

	seen := map[string]struct{}{}
	w.pollOnce(seen)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.maybeFire(ev.Name, seen)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch %s: %v", w.dir, err)
		case <-ticker.C:
			w.pollOnce(seen)
		}
	}
}

func (w *Watcher) maybeFire(path string, seen map[string]struct{}) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if !w.accepts(path) {
		return
	}
	if _, ok := seen[path]; ok {
		return
	}
	seen[path] = struct{}{}
	w.onFile(path)
}

func (w *Watcher) pollOnce(seen map[string]struct{}) {
	entries, err := filepathGlob(w.dir)
	if err != nil {
		log.Printf("watch %s: poll scan failed: %v", w.dir, err)
		return
	}
	for _, path := range entries {
		w.maybeFire(path, seen)
	}
}

func (w *Watcher) accepts(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func filepathGlob(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	abs := make([]string, len(matches))
	for i, m := range matches {
		a, err := filepath.Abs(m)
		if err != nil {
			return nil, err
		}
		abs[i] = a
	}
	return abs, nil
}
