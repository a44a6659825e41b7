// Package diag is the diagnostics sink for the engine: leveled messages
// optionally grouped under named scopes. Solver components log through a
// *Sink so a run can be made fully silent with [Nop] without changing any
// behavior.
package diag

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Level aliases zerolog's level type so callers do not import zerolog
// directly.
type Level = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Sink emits leveled diagnostics. Scopes nest; nesting is cosmetic and
// carried as a log field, never as state the caller can observe.
type Sink struct {
	log   zerolog.Logger
	scope []string
}

// New returns a sink writing human-readable lines to w at the given level.
func New(w io.Writer, level Level) *Sink {
	cw := zerolog.ConsoleWriter{Out: w, NoColor: true}
	return &Sink{log: zerolog.New(cw).Level(level).With().Timestamp().Logger()}
}

// Nop returns a sink that discards everything. It is a valid substitute for
// any other sink.
func Nop() *Sink {
	return &Sink{log: zerolog.Nop()}
}

// Scope opens a named scope, logs its header at info level and returns a
// closer that ends the scope. Callers are expected to defer the closer.
func (s *Sink) Scope(name string) func() {
	s.event(s.log.Info()).Msg(name)
	s.scope = append(s.scope, name)
	return func() {
		if n := len(s.scope); n > 0 {
			s.scope = s.scope[:n-1]
		}
	}
}

func (s *Sink) event(e *zerolog.Event) *zerolog.Event {
	if len(s.scope) > 0 {
		e = e.Str("scope", s.scope[len(s.scope)-1])
	}
	return e
}

func (s *Sink) Debugf(format string, args ...any) {
	s.event(s.log.Debug()).Msgf(format, args...)
}

func (s *Sink) Infof(format string, args ...any) {
	s.event(s.log.Info()).Msgf(format, args...)
}

func (s *Sink) Warnf(format string, args ...any) {
	s.event(s.log.Warn()).Msgf(format, args...)
}

func (s *Sink) Errorf(format string, args ...any) {
	s.event(s.log.Error()).Msgf(format, args...)
}

// WarnEnabled reports whether warn-level messages would be emitted. The
// failure reporter uses this to skip formatting per-system diagnostics.
func (s *Sink) WarnEnabled() bool {
	return s.log.GetLevel() <= LevelWarn
}
