package workspace

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
)

// Workspace is one job's private directory and the files it tracks.
// It is safe for concurrent use.
type Workspace struct {
	dir       string
	log       *logger.Logger
	onRelease func()

	mu       sync.Mutex
	tracked  map[string]struct{}
	released bool
	once     sync.Once
}

// Checkpoint captures the directory contents so a failed attempt can be
// rolled back. Obtain one with Workspace.Checkpoint.
type Checkpoint struct {
	existing map[string]struct{}
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the location of name inside the workspace. Directory parts of
// name are dropped so the result can never escape the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(filepath.Clean("/"+name)))
}

// Contains reports whether path lies inside the workspace.
func (w *Workspace) Contains(path string) bool {
	rel, err := filepath.Rel(w.dir, filepath.Clean(path))
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Track records path as created by the job. Paths outside the workspace are
// rejected since the workspace could not clean them up.
func (w *Workspace) Track(path string) error {
	if !w.Contains(path) {
		return outside(path)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return errors.New(errors.ErrCodeInternal, "workspace already released", http.StatusInternalServerError)
	}
	w.tracked[filepath.Clean(path)] = struct{}{}
	return nil
}

// Files returns the tracked files in lexical order.
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.tracked))
	for p := range w.tracked {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Remove deletes path and stops tracking it. A missing file is not an error.
func (w *Workspace) Remove(path string) error {
	if !w.Contains(path) {
		return outside(path)
	}
	path = filepath.Clean(path)
	w.mu.Lock()
	delete(w.tracked, path)
	w.mu.Unlock()
	if err := os.RemoveAll(path); err != nil {
		return errors.Internal(err).WithDetail("path", path)
	}
	return nil
}

// Checkpoint snapshots the top-level entries currently in the workspace.
func (w *Workspace) Checkpoint() Checkpoint {
	cp := Checkpoint{existing: make(map[string]struct{})}
	for _, name := range w.entries() {
		cp.existing[name] = struct{}{}
	}
	return cp
}

// Rollback removes every entry created since cp, tracked or not, so partial
// output of a failed attempt never leaks into the next one. Removal failures
// are logged as cleanup warnings.
func (w *Workspace) Rollback(cp Checkpoint) {
	for _, name := range w.entries() {
		if _, ok := cp.existing[name]; ok {
			continue
		}
		path := filepath.Join(w.dir, name)
		if err := w.Remove(path); err != nil {
			w.log.Warn("cleanup warning: partial file not removed", logger.Fields(logger.FieldPath, path, logger.FieldError, err.Error()))
		}
	}
}

// Release deletes the workspace and everything in it. It is idempotent and
// never fails the caller: errors are logged as cleanup warnings.
func (w *Workspace) Release() {
	w.once.Do(func() {
		w.mu.Lock()
		w.released = true
		w.tracked = map[string]struct{}{}
		w.mu.Unlock()

		if err := os.RemoveAll(w.dir); err != nil {
			w.log.Warn("cleanup warning: workspace not removed", logger.ErrorFields("release workspace", err))
		} else {
			w.log.Debug("workspace released")
		}
		if w.onRelease != nil {
			w.onRelease()
		}
	})
}

// Released reports whether Release has run.
func (w *Workspace) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}

func outside(path string) error {
	return errors.New(errors.ErrCodeInternal, "path is outside the workspace", http.StatusInternalServerError).
		WithDetail(logger.FieldPath, path)
}

func (w *Workspace) entries() []string {
	dirEntries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		names = append(names, e.Name())
	}
	return names
}
