package runner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"blackguard/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before it is reformatted.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reformats python files under a directory whenever they are written. Writing the
// reformatted file triggers one more event, which finds nothing to change.
type Watcher struct {
	mu       sync.Mutex
	runner   *Runner
	watcher  *fsnotify.Watcher
	root     string
	exclude  map[string]bool
	pending  map[string]time.Time
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	// OnResult, when set, receives every processed file's result.
	OnResult func(Result)
}

// NewWatcher creates a watcher for root. Directories named in the runner's exclude list are not
// watched.
func NewWatcher(r *Runner, root string) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf("watch %s: not a directory", root)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}

	exclude := make(map[string]bool)
	for _, name := range r.Config.Runner.Exclude {
		exclude[name] = true
	}
	return &Watcher{
		runner:   r,
		watcher:  fw,
		root:     root,
		exclude:  exclude,
		pending:  make(map[string]time.Time),
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start registers the directory tree and begins watching in a goroutine. When registering
// fails the underlying watcher is closed and the Watcher cannot be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.addTree(w.root); err != nil {
		if cerr := w.watcher.Close(); cerr != nil {
			logging.WatchError("error closing watcher: %v", cerr)
		}
		return err
	}
	w.running = true
	logging.Watch("watching %s", w.root)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Wait blocks until the watcher stops on its own, i.e. its context is cancelled.
func (w *Watcher) Wait() {
	<-w.doneCh
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.exclude[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		logging.WatchDebug("watching directory %s", path)
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 3
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.exclude[filepath.Base(event.Name)] {
				if err := w.addTree(event.Name); err != nil {
					logging.WatchError("%v", err)
				}
			}
			return
		}
	}
	if filepath.Ext(event.Name) != ".py" {
		return
	}
	logging.WatchDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flush reformats the files that have been quiet for the debounce period.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		res := w.runner.ProcessFile(ctx, path)
		switch {
		case res.Failed:
			logging.WatchError("%s", res.Message)
		case res.Modified:
			logging.Watch("%s", res.Message)
		default:
			logging.WatchDebug("%s", res.Message)
		}
		if w.OnResult != nil {
			w.OnResult(res)
		}
	}
}
