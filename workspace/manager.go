package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/logger"
)

// Manager creates job workspaces under a common root.
type Manager struct {
	cfg    Config
	log    *logger.Logger
	active atomic.Int64
}

// NewManager creates a Manager. A nil log uses the "workspace" component logger.
func NewManager(cfg Config, log *logger.Logger) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, errors.Internal(err).WithDetail("root", cfg.Root)
	}
	if log == nil {
		log = logger.Get("workspace")
	}
	return &Manager{cfg: cfg, log: log}, nil
}

// Create makes a fresh, empty workspace for jobID.
func (m *Manager) Create(jobID string) (*Workspace, error) {
	dir, err := os.MkdirTemp(m.cfg.Root, m.cfg.Prefix+sanitize(jobID)+"-")
	if err != nil {
		return nil, errors.Internal(err).WithDetail("operation", "create workspace")
	}
	m.active.Add(1)
	ws := &Workspace{
		dir:     dir,
		tracked: make(map[string]struct{}),
		log:     m.log.WithFields(logger.Fields(logger.FieldJobID, jobID, logger.FieldPath, dir)),
		onRelease: func() {
			m.active.Add(-1)
		},
	}
	ws.log.Debug("workspace created")
	return ws, nil
}

// Active returns the number of workspaces created and not yet released.
func (m *Manager) Active() int64 {
	return m.active.Load()
}

// Root returns the parent directory of all workspaces.
func (m *Manager) Root() string {
	return m.cfg.Root
}

// SweepStale removes workspace directories older than StaleAfter. They can
// only exist if a previous process died before releasing them.
func (m *Manager) SweepStale() int {
	if m.cfg.StaleAfter <= 0 {
		return 0
	}
	entries, err := os.ReadDir(m.cfg.Root)
	if err != nil {
		m.log.Warn("stale workspace sweep failed", logger.ErrorFields("read root", err))
		return 0
	}
	cutoff := time.Now().Add(-m.cfg.StaleAfter)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), m.cfg.Prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.cfg.Root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			m.log.Warn("cleanup warning: stale workspace not removed", logger.Fields(logger.FieldPath, path, logger.FieldError, err.Error()))
			continue
		}
		removed++
	}
	if removed > 0 {
		m.log.Info("swept stale workspaces", logger.Fields("count", removed))
	}
	return removed
}

// sanitize keeps job IDs safe for use in a directory name.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 36 {
			break
		}
	}
	if b.Len() == 0 {
		return "job"
	}
	return b.String()
}
