package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var defaultLevel = LevelInfo

// SetDefaultLevel sets the level used by loggers created without an
// explicit WithLevel option.
func SetDefaultLevel(level Level) {
	defaultLevel = level
}

// DefaultHandler returns a tint handler writing to stderr. Colors and the
// short time format are used only when stderr is a terminal.
func DefaultHandler(level Level) slog.Handler {
	isTerminal := isatty.IsTerminal(os.Stderr.Fd())
	timeFormat := time.RFC3339
	if isTerminal {
		timeFormat = time.Stamp
	}
	return tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		NoColor:    !isTerminal,
		TimeFormat: timeFormat,
	})
}

type Option func(*Logger)

func WithName(name string) Option {
	return func(l *Logger) {
		l.name = name
	}
}

func WithLevel(level Level) Option {
	return func(l *Logger) {
		l.level = level
	}
}

func WithHandler(handler slog.Handler) Option {
	return func(l *Logger) {
		l.handler = handler
	}
}

// Logger wraps slog.Logger with a component name group.
type Logger struct {
	*slog.Logger
	name    string
	level   Level
	handler slog.Handler
}

// NewLogger creates a new logger instance.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		name:  "root",
		level: defaultLevel,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.handler == nil {
		l.handler = DefaultHandler(l.level)
	}
	l.Logger = slog.New(l.handler).WithGroup(l.name)
	return l
}

// WithGroup returns a logger that nests attributes under the given group.
func (l *Logger) WithGroup(group string) *Logger {
	return &Logger{
		Logger:  l.Logger.WithGroup(group),
		name:    group,
		level:   l.level,
		handler: l.handler,
	}
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
