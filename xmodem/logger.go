package xmodem

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/phsym/console-slog"
)

// Logger interface for XMODEM protocol logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// FileLogger writes logs to a file
type FileLogger struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileLogger creates a logger that writes to a file
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: file}, nil
}

func (l *FileLogger) log(level, format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s: %s\n", timestamp, level, msg)
}

func (l *FileLogger) Debug(format string, args ...interface{}) {
	l.log("DEBUG", format, args...)
}

func (l *FileLogger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

func (l *FileLogger) Error(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

func (l *FileLogger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NoopLogger does nothing
type NoopLogger struct{}

func (NoopLogger) Debug(format string, args ...interface{}) {}
func (NoopLogger) Info(format string, args ...interface{})  {}
func (NoopLogger) Error(format string, args ...interface{}) {}

// ConsoleLogger renders colorized, human-readable log lines, intended for
// CLI debugging on stderr. It is backed by log/slog with a console handler.
type ConsoleLogger struct {
	logger *slog.Logger
}

// NewConsoleLogger creates a console logger writing to w at the given
// minimum level.
func NewConsoleLogger(w io.Writer, level slog.Level) *ConsoleLogger {
	handler := console.NewHandler(w, &console.HandlerOptions{
		Level: level,
	})
	return &ConsoleLogger{logger: slog.New(handler)}
}

func (l *ConsoleLogger) Debug(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// maxDumpBytes caps the hex dumps emitted by the logging wrappers.
const maxDumpBytes = 128

// LoggingReader wraps a reader and logs all reads
type LoggingReader struct {
	reader io.Reader
	logger Logger
	name   string
}

func NewLoggingReader(reader io.Reader, logger Logger, name string) *LoggingReader {
	return &LoggingReader{
		reader: reader,
		logger: logger,
		name:   name,
	}
}

func (lr *LoggingReader) Read(p []byte) (int, error) {
	n, err := lr.reader.Read(p)
	if lr.logger != nil && n > 0 {
		if n > maxDumpBytes {
			lr.logger.Debug("%s: Read %d bytes: % x ...[truncated]", lr.name, n, p[:maxDumpBytes])
		} else {
			lr.logger.Debug("%s: Read %d bytes: % x", lr.name, n, p[:n])
		}
	}
	if err != nil && err != io.EOF && lr.logger != nil {
		lr.logger.Error("%s: Read error: %v", lr.name, err)
	}
	return n, err
}

// LoggingWriter wraps a writer and logs all writes
type LoggingWriter struct {
	writer io.Writer
	logger Logger
	name   string
}

func NewLoggingWriter(writer io.Writer, logger Logger, name string) *LoggingWriter {
	return &LoggingWriter{
		writer: writer,
		logger: logger,
		name:   name,
	}
}

func (lw *LoggingWriter) Write(p []byte) (int, error) {
	n, err := lw.writer.Write(p)
	if lw.logger != nil && n > 0 {
		if n > maxDumpBytes {
			lw.logger.Debug("%s: Wrote %d bytes: % x ...[truncated]", lw.name, n, p[:maxDumpBytes])
		} else {
			lw.logger.Debug("%s: Wrote %d bytes: % x", lw.name, n, p[:n])
		}
	}
	if err != nil && lw.logger != nil {
		lw.logger.Error("%s: Write error: %v", lw.name, err)
	}
	return n, err
}
