// Package watch regenerates on backend changes, for the dev loop.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/bridgegen/config"
	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/extract"
	"github.com/teranos/bridgegen/logger"
	"github.com/teranos/bridgegen/pipeline"
)

// RunCallback is called after every regeneration with its report, or the
// error that stopped it.
type RunCallback func(*pipeline.Report, error)

// Watcher watches every unit's source directory and regenerates in write
// mode once changes settle.
type Watcher struct {
	cfg      *config.Config
	opts     pipeline.Options
	watcher  *fsnotify.Watcher
	debounce time.Duration
	schemas  map[string]bool

	mu        sync.RWMutex
	callbacks []RunCallback
}

// New creates a watcher over the directories cfg generates from. Extraction
// is cached across runs so unchanged units are not reloaded.
func New(ctx context.Context, cfg *config.Config, opts pipeline.Options) (*Watcher, error) {
	dirs, err := pipeline.WatchPaths(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if opts.Cache == nil {
		if opts.Cache, err = extract.NewCache(extract.DefaultCacheSize); err != nil {
			return nil, err
		}
	}
	opts.Mode = pipeline.Write

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	schemas := make(map[string]bool)
	for _, u := range cfg.Units {
		if u.Schema != "" {
			schemas[filepath.Clean(cfg.Resolve(u.Schema))] = true
		}
	}

	return &Watcher{
		cfg:      cfg,
		opts:     opts,
		watcher:  watcher,
		debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		schemas:  schemas,
	}, nil
}

// OnRun registers a callback for every regeneration.
func (w *Watcher) OnRun(callback RunCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Run generates once, then regenerates after each burst of changes until
// ctx is cancelled. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	log := logger.Named("watch")
	log.Infow("Watching for backend changes", "units", len(w.cfg.Units), "debounce", w.debounce)

	w.generate(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Infow("Stopped watching")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			log.Debugw("Detected change", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.generate(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) generate(ctx context.Context) {
	log := logger.Named("watch")
	report, err := pipeline.Run(ctx, w.cfg, w.opts)
	switch {
	case err != nil:
		log.Errorw("Regeneration failed", "error", err)
	case !report.OK():
		log.Warnw("Regenerated with conflicts", "run_id", report.RunID, "error", report.Err())
	default:
		log.Infow("Regenerated", "run_id", report.RunID, "written", report.Written())
	}

	w.mu.RLock()
	callbacks := make([]RunCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()
	for _, callback := range callbacks {
		callback(report, err)
	}
}

// relevant reports whether event can change generated output: Go sources
// and configured schema documents. Editor backups and hidden files are not.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if w.schemas[filepath.Clean(event.Name)] {
		return true
	}
	if !strings.HasSuffix(base, ".go") {
		return false
	}
	return w.cfg.Backend.Tests || !strings.HasSuffix(base, "_test.go")
}
