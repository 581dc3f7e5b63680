package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/minios-linux/tanker/keyset"
)

// DefaultDebounce is the quiet period after the last change before a
// rebuild starts.
const DefaultDebounce = 200 * time.Millisecond

// Watch builds once, then rebuilds whenever a keyset file or core file
// under the targets' levels changes. Build errors are passed to report
// and do not stop watching. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, opts Options, debounce time.Duration, report func(*Result, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	coreFiles := make(map[string]bool)
	for _, rt := range opts.Targets {
		for _, level := range rt.Levels {
			if err := addTree(w, level); err != nil {
				return err
			}
		}
		if rt.CoreFile != "" {
			coreFiles[rt.CoreFile] = true
			if err := w.Add(filepath.Dir(rt.CoreFile)); err != nil {
				return fmt.Errorf("watching %s: %w", rt.CoreFile, err)
			}
		}
	}

	report(Run(ctx, opts))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						log.Warn().Err(err).Str("path", ev.Name).Msg("cannot watch directory")
					}
				}
			}
			if !relevant(ev.Name, coreFiles) {
				continue
			}
			log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("change")
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			report(Run(ctx, opts))
		}
	}
}

// addTree watches dir and all its subdirectories. Missing directories
// are skipped.
func addTree(w *fsnotify.Watcher, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether a change of path can affect a build: keyset
// files, keyset directories and core files.
func relevant(path string, coreFiles map[string]bool) bool {
	if coreFiles[path] {
		return true
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, keyset.Suffix) {
		return true
	}
	for _, ext := range keyset.Extensions {
		if strings.HasSuffix(name, ext) {
			return strings.HasSuffix(filepath.Base(filepath.Dir(path)), keyset.Suffix) ||
				strings.HasSuffix(strings.TrimSuffix(name, ext), keyset.Suffix)
		}
	}
	return false
}
