// Package cmd holds the startup plumbing shared by service commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/diagnosis/internal/platform/config"
	"github.com/louisbranch/diagnosis/internal/platform/otel"
	"github.com/louisbranch/diagnosis/internal/platform/timeouts"
	"github.com/rs/zerolog"
)

// ServiceDiagnosis names the diagnosis web service in telemetry and logs.
const ServiceDiagnosis = "diagnosis"

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	OTelEndpoint    string
	OTelDisabled    bool
	OTelSampleRatio float64
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseConfigFromArgs loads defaults from env and then parses flags.
func ParseConfigFromArgs[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if err := ParseConfig(cfg); err != nil {
		return err
	}
	return ParseArgs(fs, args)
}

// RunWithTelemetry configures tracing and executes a service run loop.
func RunWithTelemetry(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	shutdown, err := otel.Setup(ctx, otel.Settings{
		ServiceName: service,
		Endpoint:    options.OTelEndpoint,
		Disabled:    options.OTelDisabled,
		SampleRatio: options.OTelSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = timeouts.TelemetryShutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("service", service).Msg("otel shutdown")
		}
	}()
	return run(ctx)
}
