// Package logging builds the zerolog logger used across the service and
// adapts it to the key/value Logger contract the auth core expects.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, disabled.
	Level string
	// Format is json or console.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a zerolog logger from cfg
func New(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	output := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a string level to zerolog.Level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Adapter exposes a zerolog logger through Debug/Info/Warn/Error calls whose
// trailing args are key/value pairs.
type Adapter struct {
	log zerolog.Logger
}

// NewAdapter wraps l
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAdapter(l zerolog.Logger) *Adapter {
	return &Adapter{log: l}
}

// Named returns a child adapter tagged with component
func (a *Adapter) Named(component string) *Adapter {
	return &Adapter{log: a.log.With().Str("component", component).Logger()}
}

// Zerolog returns the wrapped logger
func (a *Adapter) Zerolog() zerolog.Logger {
	return a.log
}

func (a *Adapter) Debug(msg string, args ...any) { a.emit(a.log.Debug(), msg, args) }
func (a *Adapter) Info(msg string, args ...any)  { a.emit(a.log.Info(), msg, args) }
func (a *Adapter) Warn(msg string, args ...any)  { a.emit(a.log.Warn(), msg, args) }
func (a *Adapter) Error(msg string, args ...any) { a.emit(a.log.Error(), msg, args) }

func (a *Adapter) emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			ev = ev.Interface("extra", args[i])
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		switch v := args[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
