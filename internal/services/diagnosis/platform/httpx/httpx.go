// Package httpx provides HTTP middleware and response helpers for the
// diagnosis handlers.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/platform/id"
	apperrors "github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/errors"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDHeader    = "X-Request-ID"
	htmxHeader         = "HX-Request"
	htmxRedirectHeader = "HX-Redirect"
)

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

var newRequestID = id.NewID

// RequestID injects and echoes a request id for correlation.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" {
				generated, err := newRequestID()
				if err != nil {
					WriteError(w, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("new request id: %w", err)))
					return
				}
				requestID = generated
				r.Header.Set(requestIDHeader, requestID)
			}
			w.Header().Set(requestIDHeader, requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// Logger attaches a request-scoped logger to the context and writes one
// access line per request.
func Logger(base zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With().
				Str("request_id", r.Header.Get(requestIDHeader)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			r = r.WithContext(logger.WithContext(r.Context()))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			event := logger.Info()
			if rec.Status() >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Int("status", rec.Status()).
				Int("bytes", rec.bytes).
				Bool("htmx", IsHTMXRequest(r)).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// Trace starts a server span per request, continuing any incoming trace.
func Trace(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("github.com/louisbranch/diagnosis/httpx")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rec.Status()))
			if rec.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.Status()))
			}
		})
	}
}

// RecoverPanic converts panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					zerolog.Ctx(r.Context()).Error().
						Str("panic", fmt.Sprint(recovered)).
						Str("stack", strings.TrimSpace(string(debug.Stack()))).
						Msg("panic recovered")
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSameOrigin rejects state-changing requests that cannot prove they
// came from this origin.
func RequireSameOrigin(policy requestmeta.SchemePolicy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !requestmeta.SameOrigin(r, policy) {
					WriteError(w, apperrors.E(apperrors.KindForbidden, "cross-origin request rejected"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes a plain error response using typed status mapping.
func WriteError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	http.Error(w, message, status)
}

// WriteComponent renders c into a buffer and writes it with status, so a
// render failure never leaves a half-written page.
func WriteComponent(w http.ResponseWriter, r *http.Request, status int, c templ.Component) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	var buf bytes.Buffer
	if err := c.Render(RequestContext(r), &buf); err != nil {
		return fmt.Errorf("render component: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RequestContext returns r.Context() with a nil-safe fallback.
func RequestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}

// IsHTMXRequest reports whether the request came from htmx.
func IsHTMXRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.Header.Get(htmxHeader) == "true"
}

// WriteRedirect writes an htmx-aware redirect. Non-htmx form posts get a
// 303 so the browser follows with GET.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string) {
	if w == nil {
		return
	}
	if IsHTMXRequest(r) {
		w.Header().Set(htmxRedirectHeader, location)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r == nil {
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
