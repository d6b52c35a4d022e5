// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, encoding and sink for the process logger. It is
// filled from the logging block of the Rolegate config file.
type Config struct {
	// Level is one of the names accepted by ValidLevel. Unknown names mean info.
	Level string

	// Format is "json" or "console". Only console changes the encoding.
	Format string

	Caller    bool
	Timestamp bool

	// Output is os.Stderr when nil.
	Output io.Writer
}

// DefaultConfig is JSON at info level on stderr, with timestamps.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

// levels maps every accepted level name, aliases included.
var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
	"off":      zerolog.Disabled,
}

// global is swapped whole by Init and SetLogger; readers never block.
var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // startup code logs before main calls Init
func init() {
	Init(DefaultConfig())
}

// Init builds a logger from cfg and installs it. Calling it again replaces
// the previous logger and global level.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()
	global.Store(&l)
}

func parseLevel(name string) zerolog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// ValidLevel reports whether Init understands name. Config validation uses
// it to reject typos instead of silently logging at info.
func ValidLevel(name string) bool {
	_, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func current() *zerolog.Logger {
	return global.Load()
}

// Logger returns a copy of the installed logger.
func Logger() zerolog.Logger {
	return *current()
}

// SetLogger installs l as is. Tests use it to restore a captured logger.
//
//nolint:gocritic // zerolog.Logger is passed by value throughout zerolog
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// With starts a child context of the installed logger.
func With() zerolog.Context {
	return current().With()
}

// WithComponent is the logger handed to long-lived components such as the
// record source and the audit writer.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}

func Debug() *zerolog.Event { return current().Debug() }
func Info() *zerolog.Event  { return current().Info() }
func Warn() *zerolog.Event  { return current().Warn() }
func Error() *zerolog.Event { return current().Error() }

// Fatal exits the process once the event is sent. Reserved for main.
func Fatal() *zerolog.Event { return current().Fatal() }

// Err logs at error level, or at info when err is nil.
func Err(err error) *zerolog.Event { return current().Err(err) }

// NewTestLogger returns a timestamped JSON logger writing to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
