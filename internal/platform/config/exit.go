package config

import "github.com/rs/zerolog/log"

// Exitf reports a fatal startup error through the process logger and exits
// with code 1. Before logging is configured the default logger writes JSON
// lines to stderr.
func Exitf(format string, args ...any) {
	log.Fatal().Msgf(format, args...)
}
