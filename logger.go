package recordwire

import (
	"io"
	"log/slog"
)

// Logger receives the package's diagnostics. Arguments after msg are
// alternating keys and values, so *slog.Logger satisfies it as is; the
// binaries plug in a zerolog adapter instead.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger is used when no LoggerOption is given.
func defaultLogger() Logger {
	return slog.Default()
}

// DiscardLogger returns a Logger that drops everything.
func DiscardLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
