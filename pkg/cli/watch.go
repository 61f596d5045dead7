package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watch runs every file once, then again each time it is written or
// replaced, until ctx is done. Parent directories are watched so editors
// that save by renaming are still seen.
func (r *runner) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]string, len(r.opts.files))
	dirs := make(map[string]bool)
	for _, f := range r.opts.files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = f
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	for _, f := range r.opts.files {
		r.runFile(ctx, f)
	}
	return watchLoop(ctx, w, watched, func(path string) {
		fmt.Fprintf(r.stdout, "--- %s changed\n", path)
		r.runFile(ctx, path)
	})
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, watched map[string]string, rerun func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if path, ok := watched[ev.Name]; ok {
				rerun(path)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching world files: %w", err)
		}
	}
}
