package logger

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// registry holds named component loggers and per-component level overrides.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
	levels:  make(map[string]zerolog.Level),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	levels  map[string]zerolog.Level
}

// Register stores a named logger, replacing any cached one.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get returns the logger for a component such as "acquire.ytdlp".
// Unregistered names derive from the global logger, tagged with the
// component and capped at the most specific configured level override:
// an override for "acquire" also applies to "acquire.ytdlp".
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}

	l = GetGlobalLogger().WithComponent(name)
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if level, found := registry.levelFor(name); found {
		l = l.WithLevel(level)
	}
	registry.loggers[name] = l
	return l
}

// levelFor walks from the full dotted name up to its root. Caller holds mu.
func (r *loggerRegistry) levelFor(name string) (zerolog.Level, bool) {
	for key := name; key != ""; {
		if level, ok := r.levels[key]; ok {
			return level, true
		}
		i := strings.LastIndexByte(key, '.')
		if i < 0 {
			break
		}
		key = key[:i]
	}
	return zerolog.NoLevel, false
}

// configureComponents drops cached loggers and installs new overrides.
// Invalid levels are skipped; Config.Validate reports them.
func configureComponents(overrides map[string]string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers = make(map[string]*Logger)
	registry.levels = make(map[string]zerolog.Level, len(overrides))
	for name, lvl := range overrides {
		level, err := zerolog.ParseLevel(lvl)
		if err != nil {
			continue
		}
		registry.levels[name] = level
	}
}
