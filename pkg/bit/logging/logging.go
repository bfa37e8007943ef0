// Package logging provides the leveled console and file logger used by the
// bit command line.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "normal", Trace: true}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("repository")
//	logger.Success("initialized", "path", root)
//
// Trace and debug output are independent switches; the remaining levels are
// filtered by the configured threshold.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelNormal
	LevelSuccess
	LevelError
	LevelCritical
)

// charmbracelet/log levels for the levels it does not define.
const (
	charmTrace    = log.DebugLevel - 4
	charmSuccess  = log.InfoLevel + 2
	charmCritical = log.FatalLevel
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelNormal:
		return "normal"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelTrace:
		return charmTrace
	case LevelDebug:
		return log.DebugLevel
	case LevelSuccess:
		return charmSuccess
	case LevelError:
		return log.ErrorLevel
	case LevelCritical:
		return charmCritical
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level. An empty string is LevelNormal.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "normal", "info":
		return LevelNormal, nil
	case "success":
		return LevelSuccess, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	default:
		return LevelNormal, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the threshold for normal, success, error and critical messages.
	Level string

	// Trace enables trace messages regardless of Level.
	Trace bool

	// Debug enables debug messages regardless of Level.
	Debug bool

	// Path is an optional log file. Empty disables file output.
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// NoColor disables styling on the console.
	NoColor bool

	// Console receives console output. Nil means stderr.
	Console io.Writer
}

// Logger wraps charmbracelet/log with component identification.
type Logger struct {
	console   *log.Logger
	file      *log.Logger // nil unless a log file is configured
	component string
	gate      gate
}

// gate decides which levels a Logger emits. It is copied into each logger
// when the logger is created.
type gate struct {
	threshold Level
	trace     bool
	debug     bool
}

func (g gate) enabled(level Level) bool {
	switch level {
	case LevelTrace:
		return g.trace || g.threshold == LevelTrace
	case LevelDebug:
		return g.debug || g.threshold <= LevelDebug
	default:
		return level >= g.threshold
	}
}

// Trace logs a trace message. Emitted only when tracing is enabled.
func (l *Logger) Trace(msg string, args ...interface{}) {
	l.log(LevelTrace, msg, args...)
}

// Debug logs a debug message. Emitted only when debug logging is enabled.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Normal logs an informational message.
func (l *Logger) Normal(msg string, args ...interface{}) {
	l.log(LevelNormal, msg, args...)
}

// Success logs the successful completion of an operation.
func (l *Logger) Success(msg string, args ...interface{}) {
	l.log(LevelSuccess, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Critical logs an unrecoverable failure. It does not exit.
func (l *Logger) Critical(msg string, args ...interface{}) {
	l.log(LevelCritical, msg, args...)
}

// Enabled reports whether messages at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return l.gate.enabled(level)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if !l.gate.enabled(level) {
		return
	}
	l.console.Log(level.toCharmLevel(), msg, args...)
	if l.file != nil {
		l.file.Log(level.toCharmLevel(), msg, args...)
	}
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	newLogger := &Logger{
		console:   l.console.With(args...),
		component: l.component,
		gate:      l.gate,
	}
	if l.file != nil {
		newLogger.file = l.file.With(args...)
	}
	return newLogger
}

// state holds the global logging state.
type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	console     io.Writer
	noColor     bool
	gate        gate
	loggers     map[string]*Logger
}

var globalState = &state{
	loggers: make(map[string]*Logger),
}

// Init initializes the logging system with the given configuration.
// Before Init is called, all loggers write to io.Discard.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	var writer *RotatingWriter
	if cfg.Path != "" {
		writer, err = NewRotatingWriter(cfg.Path, cfg.Rotation)
		if err != nil {
			return fmt.Errorf("creating log writer: %w", err)
		}
	}

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
	}

	globalState.writer = writer
	globalState.console = cfg.Console
	if globalState.console == nil {
		globalState.console = os.Stderr
	}
	globalState.noColor = cfg.NoColor
	globalState.gate = gate{threshold: level, trace: cfg.Trace, debug: cfg.Debug}
	globalState.initialized = true

	// Recreate all existing loggers with the new configuration
	for component := range globalState.loggers {
		globalState.loggers[component] = createLogger(component)
	}

	return nil
}

// Get returns the logger for the given component.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger must be called with globalState.mu held.
func createLogger(component string) *Logger {
	if !globalState.initialized {
		return &Logger{
			console: log.NewWithOptions(io.Discard, log.Options{
				Level:  charmTrace,
				Prefix: component,
			}),
			component: component,
			gate:      gate{threshold: LevelNormal},
		}
	}

	console := log.NewWithOptions(globalState.console, log.Options{
		Level:           charmTrace,
		ReportTimestamp: false,
		Prefix:          component,
	})
	console.SetStyles(levelStyles())
	if globalState.noColor {
		console.SetColorProfile(termenv.Ascii)
	}

	logger := &Logger{
		console:   console,
		component: component,
		gate:      globalState.gate,
	}

	if globalState.writer != nil {
		file := log.NewWithOptions(globalState.writer, log.Options{
			Level:           charmTrace,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		})
		file.SetStyles(levelStyles())
		file.SetColorProfile(termenv.Ascii)
		logger.file = file
	}

	return logger
}

// levelStyles extends the default styles with names for trace, success and
// critical.
func levelStyles() *log.Styles {
	styles := log.DefaultStyles()
	styles.Levels[charmTrace] = lipgloss.NewStyle().
		SetString("TRACE").
		Bold(true).
		MaxWidth(5).
		Foreground(lipgloss.Color("245"))
	styles.Levels[charmSuccess] = lipgloss.NewStyle().
		SetString("OK").
		Bold(true).
		MaxWidth(5).
		Foreground(lipgloss.Color("42"))
	styles.Levels[charmCritical] = lipgloss.NewStyle().
		SetString("CRIT").
		Bold(true).
		MaxWidth(5).
		Foreground(lipgloss.Color("196"))
	return styles
}

// Close flushes and closes the log file and returns loggers to discard mode.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	var err error
	if globalState.writer != nil {
		if closeErr := globalState.writer.Close(); closeErr != nil {
			err = fmt.Errorf("closing log writer: %w", closeErr)
		}
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.loggers = make(map[string]*Logger)

	return err
}
