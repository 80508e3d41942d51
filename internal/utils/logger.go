package utils

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is a simple leveled logger for the application
type Logger struct {
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
}

// NewLogger creates a logger writing info to stdout and warnings and errors to stderr
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr)
}

// NewLoggerTo creates a logger with explicit destinations
func NewLoggerTo(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		infoLog:  log.New(out, "INFO: ", flags),
		warnLog:  log.New(errOut, "WARN: ", flags),
		errorLog: log.New(errOut, "ERROR: ", flags),
	}
}

// With returns a logger that tags every line with a component name
func (l *Logger) With(component string) *Logger {
	tag := fmt.Sprintf("[%s] ", component)
	derive := func(base *log.Logger) *log.Logger {
		return log.New(base.Writer(), base.Prefix()+tag, base.Flags())
	}
	return &Logger{
		infoLog:  derive(l.infoLog),
		warnLog:  derive(l.warnLog),
		errorLog: derive(l.errorLog),
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warn logs a recoverable problem
func (l *Logger) Warn(format string, v ...interface{}) {
	l.warnLog.Output(2, fmt.Sprintf(format, v...))
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}
