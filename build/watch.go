package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/logger"
	"github.com/teranos/avbindgen/translate"
	"github.com/teranos/avbindgen/typegen"
)

// DebouncePeriod collapses bursts of header changes into one rebuild.
var DebouncePeriod = 500 * time.Millisecond

// Watch runs a full build, then rebuilds the artifact whenever a header in
// a watched directory changes, until ctx is cancelled. Failed builds are
// logged and the watch goes on. Rebuilds are sequential and emit no
// directives.
func Watch(ctx context.Context, cfg *buildenv.Config, engine typegen.Engine, directives io.Writer) error {
	log := logger.ComponentLogger("build.watch")

	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := Run(cfg, engine, directives); err != nil {
		log.Errorw("build failed", logger.FieldError, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer watcher.Close()

	dirs := WatchDirs(cfg)
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}
	log.Infow("watching headers", logger.FieldCount, len(dirs))

	rebuild := make(chan struct{}, 1)
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

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isHeaderChange(event) {
				continue
			}
			log.Debugw("header changed", logger.FieldHeader, event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(DebouncePeriod, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case <-rebuild:
			if _, err := runWorker(cfg, func() (string, error) {
				return generateAndWrite(cfg, engine)
			}); err != nil {
				log.Errorw("rebuild failed", logger.FieldError, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", logger.FieldError, err)
		}
	}
}

// WatchDirs returns the existing directories holding the requested
// headers, sorted and without duplicates.
func WatchDirs(cfg *buildenv.Config) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, h := range translate.Headers(cfg) {
		dir := filepath.Dir(h)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func isHeaderChange(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".h") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
