package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	errorLogFile    = "error.log"
	activityLogFile = "bot_activity.log"
	patternLogFile  = "pattern_matches.log"
)

// Options configures the sink.
type Options struct {
	// Dir receives the rotated log files. Empty disables file output.
	Dir string
	// Level is the minimum level written to the activity file.
	Level string
	// ConsoleLevel is the minimum level written to Console.
	ConsoleLevel string
	// Format is "console" (human readable) or "json".
	Format string
	// Console defaults to os.Stderr.
	Console io.Writer
	// Service is attached to every record.
	Service string
}

// Sink owns the zerolog pipelines and the rotated files behind them.
type Sink struct {
	logger  Logger
	matches Logger
	closers []io.Closer
}

// New builds the sink: console, error file, activity file and the dedicated
// pattern match stream.
func New(opts Options) (*Sink, error) {
	fileLevel, err := parseLevel(opts.Level, zerolog.InfoLevel)
	if err != nil {
		return nil, err
	}
	consoleLevel, err := parseLevel(opts.ConsoleLevel, zerolog.DebugLevel)
	if err != nil {
		return nil, err
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.Service == "" {
		opts.Service = "discord-bot"
	}

	s := &Sink{}
	console := levelFilter{w: consoleWriter(opts.Console, opts.Format), min: consoleLevel}

	writers := []io.Writer{console}
	matchWriters := []io.Writer{console}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		errFile := s.rotated(opts.Dir, errorLogFile, 14)
		activity := s.rotated(opts.Dir, activityLogFile, 30)
		patterns := s.rotated(opts.Dir, patternLogFile, 30)

		writers = append(writers,
			levelFilter{w: errFile, min: zerolog.ErrorLevel},
			levelFilter{w: activity, min: fileLevel},
		)
		matchWriters = append(matchWriters, patterns)
	}

	base := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.TraceLevel).
		With().Timestamp().Str("service", opts.Service).Logger()
	s.logger = FromZerolog(base)

	matches := zerolog.New(zerolog.MultiLevelWriter(matchWriters...)).
		Level(zerolog.TraceLevel).
		With().Timestamp().Str("service", opts.Service).Str("stream", "pattern").Logger()
	s.matches = FromZerolog(matches)

	return s, nil
}

// Logger is the general activity logger.
func (s *Sink) Logger() Logger { return s.logger }

// Matches is the stream of pattern match events; it never reaches the
// activity file.
func (s *Sink) Matches() Logger { return s.matches }

// Close flushes and closes every rotated file.
func (s *Sink) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Sink) rotated(dir, name string, maxAgeDays int) io.Writer {
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    20, // megabytes
		MaxAge:     maxAgeDays,
		Compress:   true,
		LocalTime:  true,
		MaxBackups: 0,
	}
	s.closers = append(s.closers, lj)
	return lj
}

func consoleWriter(out io.Writer, format string) io.Writer {
	if strings.EqualFold(format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
}

func parseLevel(s string, def zerolog.Level) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return def, fmt.Errorf("parse log level %q: %w", s, err)
	}
	if lvl == zerolog.NoLevel {
		return def, nil
	}
	return lvl, nil
}

// levelFilter drops records below min before they reach w.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}
