package logging

import (
	"io"
	"log/slog"
	"os"
)

// #region logger
// Logger is a slog logger writing to stdout and, optionally, a log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// NewLogger creates a text logger on stdout. A non-empty path also
// appends to that file. Debug enables debug-level records.
func NewLogger(path string, debug bool) (*Logger, error) {
	return newLogger(os.Stdout, path, debug)
}

func newLogger(stdout io.Writer, path string, debug bool) (*Logger, error) {
	writers := []io.Writer{stdout}

	var file *os.File
	if path != "" {
		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler), file: file}, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// #endregion logger
