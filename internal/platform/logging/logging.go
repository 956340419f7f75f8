// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format selects the log line encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options describes logger construction.
type Options struct {
	Level   string
	Format  Format
	Service string
	Output  io.Writer
}

// New builds a logger from opts.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", raw, err)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	switch opts.Format {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if service := strings.TrimSpace(opts.Service); service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger(), nil
}

// Install builds a logger and makes it the global zerolog logger.
func Install(opts Options) (zerolog.Logger, error) {
	logger, err := New(opts)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
	return logger, nil
}
