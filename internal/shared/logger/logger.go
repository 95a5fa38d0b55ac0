package logger

import (
	"log"
	"os"
)

// Logger provides a simple key-value logging interface
type Logger struct {
	logger *log.Logger
	prefix string
}

// NewLogger creates a new logger instance
func NewLogger() *Logger {
	return &Logger{
		logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// With returns a logger that prefixes every message with a component name
func (l *Logger) With(component string) *Logger {
	return &Logger{
		logger: l.logger,
		prefix: "[" + component + "] ",
	}
}

// Info logs an informational message
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.print("INFO", msg, keysAndValues)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.print("WARN", msg, keysAndValues)
}

// Error logs an error message
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.print("ERROR", msg, keysAndValues)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.print("DEBUG", msg, keysAndValues)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.logger.Fatalf("[FATAL] %s%s %v", l.prefix, msg, keysAndValues)
}

func (l *Logger) print(level, msg string, keysAndValues []interface{}) {
	if len(keysAndValues) == 0 {
		l.logger.Printf("[%s] %s%s", level, l.prefix, msg)
		return
	}
	l.logger.Printf("[%s] %s%s %v", level, l.prefix, msg, keysAndValues)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return nil
}
