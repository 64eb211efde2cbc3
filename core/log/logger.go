package log

import (
	"io"
	"log/slog"
	"os"
)

var (
	logger *slog.Logger
	level  slog.Level = slog.Level(1000) // silent until the CLI picks a level
	writer io.Writer  = os.Stdout
)

func init() {
	rebuild()
}

func rebuild() {
	logger = slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
}

func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

func SetLevel(l slog.Level) {
	level = l
	rebuild()
}

// SetWriter redirects output, e.g. to an io.MultiWriter of stdout and a log file.
func SetWriter(w io.Writer) {
	writer = w
	rebuild()
}
