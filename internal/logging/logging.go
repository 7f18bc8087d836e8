// Package logging is the single structured log sink of the responder.
//
// Everything outside this package talks to a Logger; only this package knows
// that records end up in zerolog and lumberjack-rotated files.
package logging

import (
	"github.com/rs/zerolog"
)

// Logger is the narrow structured logging surface used by the engine.
// kv is a flat list of alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

type zlog struct {
	l zerolog.Logger
}

// FromZerolog adapts a zerolog.Logger to Logger.
func FromZerolog(l zerolog.Logger) Logger {
	return zlog{l: l}
}

func (z zlog) Debug(msg string, kv ...any) { emit(z.l.Debug(), msg, kv) }
func (z zlog) Info(msg string, kv ...any)  { emit(z.l.Info(), msg, kv) }
func (z zlog) Warn(msg string, kv ...any)  { emit(z.l.Warn(), msg, kv) }
func (z zlog) Error(msg string, kv ...any) { emit(z.l.Error(), msg, kv) }

func (z zlog) With(kv ...any) Logger {
	if len(kv) == 0 {
		return z
	}
	return zlog{l: z.l.With().Fields(pairs(kv)).Logger()}
}

func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	if len(kv) > 0 {
		e = e.Fields(pairs(kv))
	}
	e.Msg(msg)
}

// pairs pads a dangling key so zerolog never drops the record.
func pairs(kv []any) []any {
	if len(kv)%2 == 0 {
		return kv
	}
	out := make([]any, 0, len(kv)+1)
	out = append(out, kv...)
	return append(out, "!MISSING")
}

type nop struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Debug(string, ...any)  {}
func (nop) Info(string, ...any)   {}
func (nop) Warn(string, ...any)   {}
func (nop) Error(string, ...any)  {}
func (n nop) With(...any) Logger { return n }
