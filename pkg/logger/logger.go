package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the minimum severity a logger writes
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	minLevel atomic.Int32
	sink     = &switchWriter{w: os.Stdout}
)

func init() {
	minLevel.Store(int32(LevelInfo))
}

// switchWriter lets every logger share one output that can be replaced at runtime
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// Logger is a wrapper around the standard library logger
type Logger struct {
	*log.Logger
	component string
}

// New creates a new logger tagged with the given component name
func New(component string) *Logger {
	return &Logger{
		Logger:    log.New(sink, "", 0),
		component: component,
	}
}

// SetLevel sets the minimum level for all loggers
func SetLevel(level Level) {
	minLevel.Store(int32(level))
}

// SetOutput redirects all loggers to w
func SetOutput(w io.Writer) {
	sink.set(w)
}

// RotateTo mirrors all log output into a size-rotated file next to stdout.
// The returned closer releases the file.
func RotateTo(path string, maxSizeMB, maxBackups int) io.Closer {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     28,
		Compress:   true,
	}
	SetOutput(io.MultiWriter(os.Stdout, file))
	return file
}

// formatMessage formats a log message with timestamp and component
func (l *Logger) formatMessage(level, format string, v ...interface{}) string {
	timestamp := time.Now().Format(time.RFC3339)
	message := fmt.Sprintf(format, v...)

	if l.component != "" {
		return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, level, l.component, message)
	}

	return fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)
}

func (l *Logger) write(level Level, tag, format string, v ...interface{}) {
	if level < Level(minLevel.Load()) {
		return
	}
	l.Logger.Println(l.formatMessage(tag, format, v...))
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.write(LevelInfo, "INFO", format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.write(LevelError, "ERROR", format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.write(LevelWarn, "WARN", format, v...)
}

// Global logger instance for application-wide logging
var Global = New("")

// SetGlobal sets the global logger
func SetGlobal(logger *Logger) {
	Global = logger
}
