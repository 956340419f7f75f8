// Package diagnosis serves the wizard: the question steps, the result, and
// the contact form.
package diagnosis

import (
	"context"
	"net/http"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/contact"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/flow"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/requestmeta"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
)

// Service applies wizard transitions for a browser session.
type Service interface {
	Open(ctx context.Context, sessionID string, token string) (flow.Session, error)
	Answer(ctx context.Context, sessionID string, step int, optionID string, region string) (flow.Session, error)
	Back(ctx context.Context, sessionID string) (flow.Session, error)
	Restart(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, sessionID string, form contact.Form) (flow.Session, flow.SubmitOutcome, error)
	SessionTTL() time.Duration
	Pacing() time.Duration
}

// Module provides the wizard routes.
type Module struct {
	service Service
	policy  requestmeta.SchemePolicy
}

// New returns the wizard module.
func New(service Service, policy requestmeta.SchemePolicy) Module {
	return Module{service: service, policy: policy}
}

// ID returns a stable identifier for diagnostics and startup logs.
func (Module) ID() string { return "diagnosis" }

// Mount wires the wizard routes.
func (m Module) Mount() (module.Mount, error) {
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.service, m.policy))
	return module.Mount{Prefix: routepath.Diagnosis + "/", Handler: mux}, nil
}
