// Package diagnosis parses diagnosis command flags and launches the web
// service.
package diagnosis

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/diagnosis/internal/platform/cmd"
	"github.com/louisbranch/diagnosis/internal/platform/logging"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/app"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/flow"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/handoff"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/storage"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/storage/memory"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/storage/sqlite"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/submission"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

// Config holds diagnosis command configuration.
type Config struct {
	HTTPAddr            string        `env:"DIAGNOSIS_HTTP_ADDR" envDefault:"localhost:8080"`
	FormEndpoint        string        `env:"DIAGNOSIS_FORM_ENDPOINT"`
	SubmitTimeout       time.Duration `env:"DIAGNOSIS_SUBMIT_TIMEOUT" envDefault:"10s"`
	AnswerPacing        time.Duration `env:"DIAGNOSIS_ANSWER_PACING" envDefault:"180ms"`
	SessionTTL          time.Duration `env:"DIAGNOSIS_SESSION_TTL" envDefault:"30m"`
	SweepInterval       time.Duration `env:"DIAGNOSIS_SWEEP_INTERVAL" envDefault:"5m"`
	DBPath              string        `env:"DIAGNOSIS_DB_PATH"`
	HandoffKey          string        `env:"DIAGNOSIS_HANDOFF_KEY"`
	LogLevel            string        `env:"DIAGNOSIS_LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"DIAGNOSIS_LOG_FORMAT" envDefault:"console"`
	TrustForwardedProto bool          `env:"DIAGNOSIS_TRUST_FORWARDED_PROTO"`
	OTelEndpoint        string        `env:"DIAGNOSIS_OTEL_ENDPOINT"`
	OTelEnabled         bool          `env:"DIAGNOSIS_OTEL_ENABLED" envDefault:"true"`
	OTelSampleRatio     float64       `env:"DIAGNOSIS_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// ParseConfig parses environment and flags into a Config. Flags bind to
// the config fields before the environment loads, so a flag given on the
// command line overrides its env value and an absent flag leaves it alone.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.HTTPAddr, "http-addr", "", "HTTP listen address (default localhost:8080)")
	fs.StringVar(&cfg.FormEndpoint, "form-endpoint", "", "Hosted form endpoint that receives contact submissions")
	fs.DurationVar(&cfg.SubmitTimeout, "submit-timeout", 0, "Contact submission timeout (default 10s)")
	fs.DurationVar(&cfg.AnswerPacing, "answer-pacing", 0, "Delay before the next question accepts an answer (default 180ms)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Idle lifetime of a wizard session (default 30m)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 0, "Expired session purge interval (default 5m)")
	fs.StringVar(&cfg.DBPath, "db-path", "", "SQLite session database path; empty keeps sessions in memory")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (default info)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format, console or json (default console)")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", false, "Honor X-Forwarded-Proto from a trusted proxy")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	if cfg.SubmitTimeout <= 0 {
		return Config{}, fmt.Errorf("submit timeout must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("session ttl must be positive")
	}
	if cfg.AnswerPacing < 0 {
		return Config{}, fmt.Errorf("answer pacing must not be negative")
	}
	return cfg, nil
}

// Run starts the diagnosis web service.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.Install(logging.Options{
		Level:   cfg.LogLevel,
		Format:  logging.Format(cfg.LogFormat),
		Service: entrypoint.ServiceDiagnosis,
	})
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx)

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDiagnosis, entrypoint.RunOptions{
		OTelEndpoint:    cfg.OTelEndpoint,
		OTelDisabled:    !cfg.OTelEnabled,
		OTelSampleRatio: cfg.OTelSampleRatio,
	}, func(ctx context.Context) error {
		return serve(ctx, cfg, logger)
	})
}

func serve(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("close session store")
		}
	}()

	signer, err := handoff.NewSigner([]byte(cfg.HandoffKey), 0)
	if err != nil {
		return fmt.Errorf("init handoff signer: %w", err)
	}
	tracer := otel.Tracer("github.com/louisbranch/diagnosis")
	gateway, err := submission.NewGateway(submission.Config{
		Endpoint: cfg.FormEndpoint,
		Timeout:  cfg.SubmitTimeout,
		Logger:   logger.With().Str("component", "submission").Logger(),
		Tracer:   tracer,
	})
	if err != nil {
		return fmt.Errorf("init submission gateway: %w", err)
	}
	service, err := flow.New(flow.Config{
		Store:      store,
		Signer:     signer,
		Submitter:  gateway,
		SessionTTL: cfg.SessionTTL,
		Pacing:     cfg.AnswerPacing,
	})
	if err != nil {
		return fmt.Errorf("init diagnosis flow: %w", err)
	}

	server, err := app.NewServer(app.Config{
		HTTPAddr:      cfg.HTTPAddr,
		Service:       service,
		SchemePolicy:  requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
		Logger:        logger,
		Tracer:        tracer,
		SweepInterval: cfg.SweepInterval,
		Health:        healthReporters(store),
	})
	if err != nil {
		return fmt.Errorf("init diagnosis server: %w", err)
	}
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve diagnosis: %w", err)
	}
	return nil
}

// healthReporters lists the dependencies /up checks. The in-memory store
// cannot fail and reports nothing.
func healthReporters(store storage.Store) []module.HealthReporter {
	if reporter, ok := store.(module.HealthReporter); ok {
		return []module.HealthReporter{reporter}
	}
	return nil
}

func openStore(ctx context.Context, path string) (storage.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		zerolog.Ctx(ctx).Info().Msg("using in-memory session store")
		return memory.New(), nil
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("path", path).Msg("using sqlite session store")
	return store, nil
}
