package drift

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/logger"
)

// lockRetry is how often a blocked writer retries the directory lock.
const lockRetry = 50 * time.Millisecond

// pathLocks serialises writers to one target path within the process.
var pathLocks sync.Map // absolute path → *sync.Mutex

func pathLock(path string) *sync.Mutex {
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Apply writes Stale artifacts and, when prune is set, removes Stale
// orphans. Each outcome is decided again under the locks, so a file edited
// since Check is refused rather than overwritten. The returned results
// reflect what was found under the lock.
func (d *Detector) Apply(ctx context.Context, results []Result, prune bool) ([]Result, error) {
	pending := false
	for _, r := range results {
		if r.Outcome == Stale && (!r.Orphan() || prune) {
			pending = true
			break
		}
	}
	if !pending {
		return results, nil
	}

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, errors.IO(d.Dir, err)
	}
	lock := flock.New(filepath.Join(d.Dir, LockFile))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, errors.IO(lock.Path(), err)
	}
	if !locked {
		return nil, errors.IO(lock.Path(), errors.New("output directory is locked by another generator"))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Named("drift").Warnw("Failed to release output lock", "path", lock.Path(), "error", err)
		}
	}()

	out := make([]Result, len(results))
	for i, r := range results {
		applied, err := d.apply(r, prune)
		if err != nil {
			return nil, err
		}
		out[i] = applied
	}
	return out, nil
}

func (d *Detector) apply(r Result, prune bool) (Result, error) {
	if r.Outcome != Stale || (r.Orphan() && !prune) {
		return r, nil
	}
	full := filepath.Join(d.Dir, filepath.FromSlash(r.Path))
	mu := pathLock(full)
	mu.Lock()
	defer mu.Unlock()

	log := logger.Named("drift")
	if r.Orphan() {
		current, exists, err := d.read(r.Path)
		if err != nil {
			return r, err
		}
		if !exists {
			r.Removed = true
			return r, nil
		}
		again, ours := decideOrphan(r.Path, current, d.Running, d.Force)
		if !ours || again.Outcome != Stale {
			log.Warnw("Orphan changed since check; keeping it", "path", r.Path)
			if !ours {
				again = Result{Path: r.Path, Unit: r.Unit, Current: current, Outcome: Conflict, Reason: "orphan lost its bridgegen marker"}
			}
			return again, nil
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return r, errors.IO(full, err)
		}
		log.Infow("Removed orphan", "path", r.Path, "unit", r.Unit)
		again.Removed = true
		return again, nil
	}

	again, err := d.Decide(r.Artifact)
	if err != nil {
		return r, err
	}
	if again.Outcome != Stale {
		if again.Outcome == Conflict {
			log.Warnw("Target changed since check; refusing to write", "path", r.Path, "reason", again.Reason)
		}
		return again, nil
	}
	if err := writeAtomic(full, r.Artifact.Content); err != nil {
		return r, err
	}
	log.Infow("Wrote artifact", "path", r.Path, "unit", r.Unit, "reason", again.Reason)
	again.Written = true
	return again, nil
}

// writeAtomic replaces path with content through a temp file and rename so
// readers never see a partial file.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IO(dir, err)
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*.tmp")
	if err != nil {
		return errors.IO(dir, err)
	}
	name := tmp.Name()
	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(name)
		return errors.IO(path, cause)
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return errors.IO(path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return errors.IO(path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return errors.IO(path, err)
	}
	return nil
}
