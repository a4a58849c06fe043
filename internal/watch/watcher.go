// Package watch triggers rebuilds when source files change. Events are
// debounced so editor save bursts collapse into a single rebuild.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

// ErrNoPaths indicates the watcher was configured without anything to watch.
var ErrNoPaths = errors.New("watch: no paths configured")

// ErrCallbackRequired indicates no change callback was provided.
var ErrCallbackRequired = errors.New("watch: callback is required")

const defaultDebounce = 250 * time.Millisecond

// ChangeFunc is invoked after the debounce window with the paths that changed.
type ChangeFunc func(ctx context.Context, paths []string)

// Config controls the watcher.
type Config struct {
	// Paths lists files and directories to watch. Directories are walked and
	// every subdirectory is registered, and directories created later are
	// picked up from create events.
	Paths    []string
	Debounce time.Duration
}

// Watcher debounces filesystem events into rebuild callbacks.
type Watcher struct {
	cfg      Config
	onChange ChangeFunc
	logger   interfaces.Logger
	notify   *fsnotify.Watcher
}

// New builds a watcher over the configured paths.
func New(cfg Config, onChange ChangeFunc, logger interfaces.Logger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, ErrNoPaths
	}
	if onChange == nil {
		return nil, ErrCallbackRequired
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if logger == nil {
		logger = logging.NoOp()
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		onChange: onChange,
		logger:   logger,
		notify:   notify,
	}
	for _, path := range cfg.Paths {
		if err := w.addPath(path); err != nil {
			notify.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run blocks processing events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.notify.Close()

	var (
		pending = map[string]struct{}{}
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addPath(event.Name); err != nil {
						w.logger.Warn("watch new directory failed", "path", event.Name, "error", err)
					}
				}
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.cfg.Debounce)
			}
			fire = timer.C

		case <-fire:
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			pending = map[string]struct{}{}
			fire = nil
			w.logger.Debug("changes detected", "count", len(paths))
			w.onChange(ctx, paths)

		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.notify.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(dir string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) && dir != path {
			return fs.SkipDir
		}
		return w.notify.Add(dir)
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if isHidden(base) {
		return false
	}
	// editor temp files
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
