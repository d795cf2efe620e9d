package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger tagged with the service name. Debug level is enabled outside prod.
func New(service, appEnv string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, appEnv)
}

func NewWithWriter(w io.Writer, service, appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv != "prod" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// Discard is used by tests and tools that don't care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
