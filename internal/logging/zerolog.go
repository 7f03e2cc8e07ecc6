// Package logging adapts zerolog to the recordwire.Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Output formats.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ZerologAdapter implements recordwire.Logger using zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// New builds an adapter writing to w at the given level. FormatAuto picks
// the console writer when w is a terminal and JSON otherwise.
func New(w io.Writer, level, format string) (*ZerologAdapter, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "", FormatAuto:
		if isTerminal(w) {
			w = consoleWriter(w)
		}
	case FormatConsole:
		w = consoleWriter(w)
	case FormatJSON:
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &ZerologAdapter{logger: logger}, nil
}

// NewZerologAdapterWithLogger creates an adapter wrapping an existing zerolog.Logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// ParseLevel maps a level name onto zerolog; empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "parse log level %q", level)
	}
	return lvl, nil
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Debug logs a debug-level message.
func (z *ZerologAdapter) Debug(msg string, args ...any) {
	addFields(z.logger.Debug(), args).Msg(msg)
}

// Info logs an info-level message.
func (z *ZerologAdapter) Info(msg string, args ...any) {
	addFields(z.logger.Info(), args).Msg(msg)
}

// Warn logs a warning-level message.
func (z *ZerologAdapter) Warn(msg string, args ...any) {
	addFields(z.logger.Warn(), args).Msg(msg)
}

// Error logs an error-level message.
func (z *ZerologAdapter) Error(msg string, args ...any) {
	addFields(z.logger.Error(), args).Msg(msg)
}

// Logger returns the underlying zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	return z.logger
}

// addFields turns slog-style alternating key/value args into zerolog fields.
// A trailing key without a value is logged under "!BADKEY" as slog does.
func addFields(event *zerolog.Event, args []any) *zerolog.Event {
	if event == nil {
		return nil // level disabled
	}
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			event = addField(event, "!BADKEY", args[i])
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		event = addField(event, key, args[i+1])
	}
	return event
}

func addField(event *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int32:
		return event.Int32(key, v)
	case int64:
		return event.Int64(key, v)
	case uint64:
		return event.Uint64(key, v)
	case float64:
		return event.Float64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Duration:
		return event.Dur(key, v)
	case error:
		return event.AnErr(key, v)
	case fmt.Stringer:
		return event.Stringer(key, v)
	default:
		return event.Interface(key, v)
	}
}

// Bootstrap returns a console logger for use before configuration is known.
func Bootstrap() *ZerologAdapter {
	logger := zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()
	return &ZerologAdapter{logger: logger}
}
