package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FormatPretty is accepted as an alias of the console format.
const FormatPretty = "pretty"

// Logger is a zerolog logger tagged with the service name. Child loggers
// made with WithComponent, WithContext or WithFields share its output.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init builds the global logger from cfg and resets per-component levels.
func Init(cfg Config, serviceName string) {
	cfg.ApplyDefaults()
	SetGlobalLogger(New(&cfg, serviceName))
	configureComponents(cfg.Components)
}

func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, serviceName, outputWriter(cfg.Output))
}

// NewWithWriter builds a logger on w, ignoring cfg.Output. An unknown
// level falls back to info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if f := strings.ToLower(cfg.Format); f == "console" || f == FormatPretty {
		zl = zerolog.New(consoleWriter(w, serviceName, cfg.NoColor))
	} else {
		zl = zerolog.New(w)
		if serviceName != "" {
			zl = zl.With().Str(FieldService, serviceName).Logger()
		}
	}

	zc := zl.Level(level).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{logger: zc.Logger(), service: serviceName}
}

func NewDefault(serviceName string) *Logger {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return New(cfg, serviceName)
}

// Nop discards everything. Tests pass it where a logger is required.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

type jobIDKey struct{}
type requestIDKey struct{}

// ContextWithJobID tags ctx so WithContext adds job_id to every line.
func ContextWithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, jobID)
}

// ContextWithRequestID tags ctx so WithContext adds request_id to every line.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// WithContext adds the job and request IDs carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()
	if id, ok := ctx.Value(jobIDKey{}).(string); ok && id != "" {
		zc = zc.Str(FieldJobID, id)
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	return l.derive(zc.Logger())
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.logger.With().Str(FieldComponent, name).Logger())
}

func (l *Logger) WithLevel(level zerolog.Level) *Logger {
	return l.derive(l.logger.Level(level))
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.logger.With().Fields(fields).Logger())
}

func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.logger.With().Err(err).Logger())
}

// GetLogger exposes the zerolog logger for libraries that take one.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Error(), msg, fields)
}

func (l *Logger) derive(zl zerolog.Logger) *Logger {
	return &Logger{logger: zl, service: l.service}
}

// emit writes msg with fields. event is nil when its level is disabled.
func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	if event == nil {
		return
	}
	for _, f := range fields {
		event.Fields(f)
	}
	event.Msg(msg)
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the logger set by Init, or a default console
// logger when Init has not run.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefault("mediascribe")
	}
	return globalLogger
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		return os.Stderr
	}
}
