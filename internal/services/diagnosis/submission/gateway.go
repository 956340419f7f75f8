// Package submission posts validated contact forms to the hosted form
// endpoint.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/louisbranch/diagnosis/internal/platform/timeouts"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/contact"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint is the hosted form that receives diagnosis leads.
const DefaultEndpoint = "https://readdy.ai/api/form/d6aql4fmvg9ih2c7ap10"

const (
	contentType = "application/x-www-form-urlencoded"
	// drainLimit caps how much of a response body is read before close.
	drainLimit = 64 << 10
)

// FailureMessage is the only failure text shown to users.
const FailureMessage = "送信に失敗しました。もう一度お試しください。"

// ErrFailed marks a network or endpoint failure. Wrapped causes are for logs
// only; users see FailureMessage.
var ErrFailed = errors.New("contact form submission failed")

// ValidationError reports field errors; no request was sent.
type ValidationError struct {
	Fields contact.Errors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, string(field))
	}
	return fmt.Sprintf("contact form invalid: %d field(s): %s", len(names), strings.Join(names, ","))
}

// Doer sends HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config configures a Gateway.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Client   Doer
	Logger   zerolog.Logger
	Tracer   trace.Tracer
}

// Gateway submits contact forms.
type Gateway struct {
	endpoint string
	timeout  time.Duration
	client   Doer
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewGateway validates cfg and returns a Gateway.
func NewGateway(cfg Config) (*Gateway, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse form endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("form endpoint %q must be http or https", endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.Submit
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/louisbranch/diagnosis/submission")
	}
	return &Gateway{
		endpoint: endpoint,
		timeout:  timeout,
		client:   client,
		logger:   cfg.Logger,
		tracer:   tracer,
	}, nil
}

// Submit validates form and, when valid, issues a single POST. Validation
// failures return *ValidationError without network I/O. Transport errors and
// non-2xx responses wrap ErrFailed. No retry is attempted.
func (g *Gateway) Submit(ctx context.Context, form contact.Form) error {
	if errs := contact.Validate(form); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	ctx, span := g.tracer.Start(ctx, "contact.submit", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	status, err := g.post(ctx, form.Values().Encode())
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		g.logger.Warn().Err(err).Int("status", status).Msg("contact form submission failed")
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}
	g.logger.Info().Int("status", status).Msg("contact form submitted")
	return nil
}

func (g *Gateway) post(ctx context.Context, body string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	// The endpoint belongs to a third party: no trace headers leave the process.
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post form: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("form endpoint returned %s", resp.Status)
	}
	return resp.StatusCode, nil
}
