package mounts

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/logging"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher calls a regenerate function whenever something changes below
// the watched roots. Bursts of events are coalesced by a debounce delay,
// and regenerations never overlap: a change seen while one is running
// queues exactly one more.
type Watcher struct {
	roots      []string
	regenerate func(ctx context.Context) error
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	logger     zerolog.Logger
	pending    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for roots. Roots that do not exist are
// ignored.
func NewWatcher(roots []string, debounce time.Duration, regenerate func(ctx context.Context) error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot create file watcher")
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		roots:      roots,
		regenerate: regenerate,
		watcher:    fw,
		debounce:   debounce,
		logger:     logging.GetLogger("mounts.watch"),
		pending:    make(chan struct{}, 1),
	}, nil
}

// Watch blocks until ctx is cancelled. It returns only after any
// regeneration in flight has finished.
func (w *Watcher) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.drain(ctx)
	}()

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		cancel()
		wg.Wait()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
	}()

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	w.logger.Info().
		Strs("roots", w.roots).
		Dur("debounce", w.debounce).
		Msg("Watching mounted files")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.logger.Debug().Str("op", event.Op.String()).Str("file", event.Name).Msg("Change detected")

			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", event.Name).Msg("Cannot watch new directory")
					}
				}
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// schedule (re)arms the debounce timer. When it fires it queues one
// regeneration for drain; a queue that is already full absorbs it.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.pending <- struct{}{}:
		default:
		}
	})
}

// drain runs queued regenerations one at a time until ctx ends.
func (w *Watcher) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pending:
			if ctx.Err() != nil {
				return
			}
			if err := w.regenerate(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to regenerate mounts")
				continue
			}
			w.logger.Info().Msg("Mounts regenerated")
		}
	}
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot walk %s", p)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot watch %s", p)
		}
		return nil
	})
}
