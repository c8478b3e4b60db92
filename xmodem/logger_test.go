package xmodem

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmodem.log")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	logger.Debug("handshake: wrote %s", ControlName(NAK))
	logger.Info("transfer started")
	logger.Error("checksum mismatch on packet %d", 3)
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "DEBUG: handshake: wrote NAK")
	assert.Contains(t, lines[1], "INFO: transfer started")
	assert.Contains(t, lines[2], "ERROR: checksum mismatch on packet 3")
}

func TestFileLogger_NilSafe(t *testing.T) {
	var logger *FileLogger
	logger.Debug("ignored")
	assert.NoError(t, logger.Close())
}

// captureLogger records formatted lines for assertions.
type captureLogger struct {
	lines []string
}

func (l *captureLogger) Debug(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
func (l *captureLogger) Info(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
func (l *captureLogger) Error(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestLoggingWriter_TruncatesLargeDumps(t *testing.T) {
	var wire bytes.Buffer
	logger := &captureLogger{}

	w := NewLoggingWriter(&wire, logger, "tx")

	small := make([]byte, 16)
	_, err := w.Write(small)
	require.NoError(t, err)

	large := make([]byte, 200)
	_, err = w.Write(large)
	require.NoError(t, err)

	require.Len(t, logger.lines, 2)
	assert.NotContains(t, logger.lines[0], "[truncated]")
	assert.Contains(t, logger.lines[1], "Wrote 200 bytes")
	assert.Contains(t, logger.lines[1], "[truncated]")
}

func TestLoggingReaderWriter(t *testing.T) {
	var wire bytes.Buffer

	w := NewLoggingWriter(&wire, NoopLogger{}, "tx")
	n, err := w.Write([]byte{SOH, 0x01, 0xFE})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	r := NewLoggingReader(&wire, NoopLogger{}, "rx")
	buf := make([]byte, 3)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{SOH, 0x01, 0xFE}, buf)
}
